package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_added_total",
		Help: "Total number of products added",
	})

	ProductsDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deleted_total",
		Help: "Total number of products deleted",
	})

	BatchesAddedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_added_total",
		Help: "Total number of batches added",
	})

	BatchesDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "batches_deleted_total",
		Help: "Total number of batches deleted",
	})

	ValidationFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "validation_failures_total",
		Help: "Total number of rejected drafts",
	}, []string{"operation"})

	PersistenceFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "persistence_failures_total",
		Help: "Total number of failed backing store writes",
	}, []string{"operation"})

	DatasetSeededTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataset_seeded_total",
		Help: "Total number of times demo data replaced the stored collections",
	}, []string{"reason"})

	PersistLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "store_persist_latency_seconds",
		Help:    "Latency of backing store writes",
		Buckets: prometheus.DefBuckets,
	})

	ExpiryAlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "expiry_alerts_total",
		Help: "Total number of batches received already expiring or expired",
	}, []string{"status"})

	InventoryBatches = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_batches",
		Help: "Current number of batches by freshness status",
	}, []string{"status"})

	InventoryProducts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "inventory_products",
		Help: "Current number of products",
	})

	ProductsAtRisk = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "inventory_products_at_risk",
		Help: "Current number of distinct products with at least one batch in the status",
	}, []string{"status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
