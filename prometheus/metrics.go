package prometheus

import (
	"time"

	"github.com/klaker79/lacaleta-api/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Tenant context metrics
	TenantContextMissingCounter prometheus.Counter

	// Stock ledger metrics
	StockOperationsCounter prometheus.CounterVec
	StockTruncationCounter prometheus.Counter

	// Alert metrics
	AlertsCreatedCounter  prometheus.CounterVec
	AlertsResolvedCounter prometheus.CounterVec

	// Recalculation metrics
	RecalculationDuration prometheus.HistogramVec
	RecipesRecalculated   prometheus.Counter

	// Audit outbox metrics
	OutboxRetriesCounter prometheus.Counter
)

// InitMetrics initializes Prometheus metrics with configuration
func InitMetrics(cfg *config.Config) {
	// Use metric prefix from configuration
	prefix := cfg.Metrics.Prefix

	// HTTP request metrics
	HttpRequestsTotal = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTP request duration
	HttpRequestDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Tenant context metrics
	TenantContextMissingCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_tenant_context_missing_total",
			Help: "Total number of requests without tenant context",
		},
	)

	// Stock ledger metrics
	StockOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_stock_operations_total",
			Help: "Total number of stock delta operations by movement type",
		},
		[]string{"movement_type"},
	)

	StockTruncationCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_stock_truncations_total",
			Help: "Total number of deductions truncated by the floor-at-zero policy",
		},
	)

	// Alert metrics
	AlertsCreatedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alerts_created_total",
			Help: "Total number of alerts created by type",
		},
		[]string{"type", "severity"},
	)

	AlertsResolvedCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_alerts_resolved_total",
			Help: "Total number of alerts resolved by type",
		},
		[]string{"type"},
	)

	// Recalculation metrics
	RecalculationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_recalculation_duration_seconds",
			Help:    "Duration of ingredient cascade recalculations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"trigger"},
	)

	RecipesRecalculated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_recipes_recalculated_total",
			Help: "Total number of recipes recomputed by cascade runs",
		},
	)

	// Audit outbox metrics
	OutboxRetriesCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_movement_outbox_retries_total",
			Help: "Total number of stock movement audit writes sent to the retry outbox",
		},
	)
}

// TrackRecalculation returns a function that records the duration of a cascade run
func TrackRecalculation(trigger string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		RecalculationDuration.WithLabelValues(trigger).Observe(duration)
	}
}

// RecordStockOperation increments the counter for stock operations
func RecordStockOperation(movementType string) {
	StockOperationsCounter.WithLabelValues(movementType).Inc()
}

// RecordAlertCreated increments the counter for created alerts
func RecordAlertCreated(alertType string, severity string) {
	AlertsCreatedCounter.WithLabelValues(alertType, severity).Inc()
}

// RecordAlertResolved increments the counter for resolved alerts
func RecordAlertResolved(alertType string) {
	AlertsResolvedCounter.WithLabelValues(alertType).Inc()
}
