package worker

import (
	"context"
	"time"

	"retailsmart/internal/broker"
	"retailsmart/internal/clock"
	"retailsmart/internal/freshness"
	"retailsmart/internal/models"
	"retailsmart/internal/util"

	"go.uber.org/zap"
)

// ExpiryAlertWorker consumes inventory events and raises an alert for every
// batch that arrives already expiring soon, expired or undated
type ExpiryAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	clock        clock.Clock
	logger       *zap.Logger
}

// NewExpiryAlertWorker creates a new expiry alert worker
func NewExpiryAlertWorker(consumer *broker.Consumer, clk clock.Clock) *ExpiryAlertWorker {
	if clk == nil {
		clk = clock.System{}
	}
	w := &ExpiryAlertWorker{
		consumer:     consumer,
		eventHandler: broker.NewEventHandler(),
		clock:        clk,
		logger:       util.GetLogger(),
	}

	w.eventHandler.OnBatchAdded(w.HandleBatchAdded)
	w.eventHandler.OnDatasetReset(w.handleDataset)
	w.eventHandler.OnDatasetSeeded(w.handleDataset)

	return w
}

// Handler exposes the routing handler, mainly for tests
func (w *ExpiryAlertWorker) Handler() *broker.EventHandler {
	return w.eventHandler
}

// Start starts the worker
func (w *ExpiryAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting expiry alert worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *ExpiryAlertWorker) Stop() error {
	w.logger.Info("Stopping expiry alert worker")
	return w.consumer.Close()
}

// HandleBatchAdded classifies the new batch and alerts unless it is fresh
func (w *ExpiryAlertWorker) HandleBatchAdded(_ context.Context, event *models.InventoryEvent) error {
	if event.Batch == nil {
		w.logger.Warn("BatchAdded event without batch", zap.String("event_id", event.EventID))
		return nil
	}

	status := freshness.ClassifyBatch(*event.Batch, w.clock.Now())
	if status == models.StatusFresh {
		return nil
	}

	util.ExpiryAlertsTotal.WithLabelValues(string(status)).Inc()
	w.logger.Warn("Batch received close to expiry",
		zap.String("batch_id", event.Batch.ID),
		zap.String("product_id", event.Batch.ProductID),
		zap.String("expiry_date", event.Batch.ExpiryDate),
		zap.String("status", string(status)))
	return nil
}

func (w *ExpiryAlertWorker) handleDataset(_ context.Context, event *models.InventoryEvent) error {
	w.logger.Info("Inventory dataset replaced",
		zap.String("type", event.EventType),
		zap.String("reason", event.Reason),
		zap.Int("products", event.Products),
		zap.Int("batches", event.Batches))
	return nil
}

// SummarySource provides the current dashboard summary
type SummarySource interface {
	CurrentSummary(ctx context.Context) models.Summary
}

// SummaryRefresher periodically exports the dashboard summary as gauges
type SummaryRefresher struct {
	source   SummarySource
	interval time.Duration
	logger   *zap.Logger
}

// NewSummaryRefresher creates a new summary refresher
func NewSummaryRefresher(source SummarySource, interval time.Duration) *SummaryRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SummaryRefresher{
		source:   source,
		interval: interval,
		logger:   util.GetLogger(),
	}
}

// Start refreshes immediately and then on every tick until ctx is cancelled
func (r *SummaryRefresher) Start(ctx context.Context) error {
	r.logger.Info("Starting summary refresher", zap.Duration("interval", r.interval))

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping summary refresher")
			return ctx.Err()
		case <-ticker.C:
			r.Refresh(ctx)
		}
	}
}

// Refresh exports one summary
func (r *SummaryRefresher) Refresh(ctx context.Context) models.Summary {
	s := r.source.CurrentSummary(ctx)

	util.InventoryProducts.Set(float64(s.TotalProducts))
	util.InventoryBatches.WithLabelValues(string(models.StatusFresh)).Set(float64(s.FreshBatches))
	util.InventoryBatches.WithLabelValues(string(models.StatusExpiringSoon)).Set(float64(s.ExpiringSoonBatches))
	util.InventoryBatches.WithLabelValues(string(models.StatusExpired)).Set(float64(s.ExpiredBatches))
	util.InventoryBatches.WithLabelValues(string(models.StatusUnknown)).Set(float64(s.UnknownBatches))
	util.ProductsAtRisk.WithLabelValues(string(models.StatusExpiringSoon)).Set(float64(len(s.ProductsAtRiskSoon)))
	util.ProductsAtRisk.WithLabelValues(string(models.StatusExpired)).Set(float64(len(s.ProductsAtRiskExpired)))

	r.logger.Debug("Summary refreshed",
		zap.Int("products", s.TotalProducts),
		zap.Int("batches", s.TotalBatches))
	return s
}
