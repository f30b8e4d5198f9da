package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"retailsmart/config"
	"retailsmart/internal/api"
	"retailsmart/internal/apperr"
	"retailsmart/internal/broker"
	"retailsmart/internal/clock"
	"retailsmart/internal/models"
	"retailsmart/internal/redisclient"
	"retailsmart/internal/service"
	"retailsmart/internal/store"
	"retailsmart/internal/util"
	"retailsmart/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting retailsmart service")

	mode, err := models.ParseDomainMode(cfg.Business.DomainMode)
	if err != nil {
		logger.Fatal("Invalid domain mode", zap.Error(err))
	}

	if cfg.Observ.TracingEnabled {
		tp, err := util.InitTracer("retailsmart", cfg.Observ.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				logger.Error("Error shutting down tracer", zap.Error(err))
			}
		}()
	}

	kv, closeKV := openStore(cfg, logger)
	defer closeKV()

	var publisher service.EventPublisher
	if cfg.Kafka.Enabled {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory)
		defer producer.Close()
		publisher = broker.NewEventPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicInventory))
	}

	clk := clock.System{}
	inventory := service.NewInventoryService(kv, service.Options{
		Keys: service.Keys{
			Products: cfg.Storage.ProductsKey,
			Batches:  cfg.Storage.BatchesKey,
		},
		DemoProductCount: cfg.Business.DemoProductCount,
		Clock:            clk,
		Publisher:        publisher,
	})
	defer inventory.Close()
	query := service.NewQueryService(inventory, clk)

	ctx := context.Background()
	products, batches, err := inventory.LoadOrSeed(ctx)
	if err != nil && !errors.Is(err, apperr.ErrPersistence) {
		logger.Fatal("Failed to load inventory", zap.Error(err))
	}
	if err != nil {
		logger.Warn("Inventory loaded but seed was not saved", zap.Error(err))
	}
	logger.Info("Inventory ready",
		zap.Int("products", len(products)),
		zap.Int("batches", len(batches)))

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	refresher := worker.NewSummaryRefresher(query, time.Duration(cfg.Business.SummaryRefreshSeconds)*time.Second)
	go func() {
		if err := refresher.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Summary refresher error", zap.Error(err))
		}
	}()

	var alertWorker *worker.ExpiryAlertWorker
	if cfg.Kafka.Enabled {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicInventory, cfg.Kafka.ConsumerGroup)
		alertWorker = worker.NewExpiryAlertWorker(consumer, clk)
		go func() {
			if err := alertWorker.Start(workerCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Expiry alert worker error", zap.Error(err))
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(inventory, query, mode)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	if alertWorker != nil {
		if err := alertWorker.Stop(); err != nil {
			logger.Warn("Error stopping expiry alert worker", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// openStore connects the configured backing store and returns its closer
func openStore(cfg *config.Config, logger *zap.Logger) (service.KeyValueStore, func()) {
	switch cfg.Storage.Backend {
	case config.BackendRedis:
		rc, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		logger.Info("Redis connected", zap.String("addr", cfg.Redis.Addr))
		return rc, closer(rc, logger)

	case config.BackendPostgres:
		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare schema", zap.Error(err))
		}
		logger.Info("Database connected")
		return db, closer(db, logger)

	case config.BackendMemory:
		logger.Warn("Using in-memory storage, data is lost on restart")
		return store.NewMemoryKV(), func() {}

	default:
		logger.Fatal("Unknown storage backend", zap.String("backend", cfg.Storage.Backend))
		return nil, nil
	}
}

func closer(c io.Closer, logger *zap.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Warn("Error closing store", zap.Error(err))
		}
	}
}
