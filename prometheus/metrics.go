package prometheus

import (
	"time"

	"procurement-service/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	HttpRequestsTotal   prometheus.CounterVec
	HttpRequestDuration prometheus.HistogramVec

	// Database operation metrics
	DbOperationDuration prometheus.HistogramVec

	// Entity operation metrics (supplier/item/order)
	EntityOperationsCounter prometheus.CounterVec

	// Sequence-code collision retries
	SequenceRetriesCounter prometheus.CounterVec

	// Active entity gauges
	ActiveSuppliersGauge prometheus.Gauge
	ActiveItemsGauge     prometheus.Gauge
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

	// Database operation metrics
	DbOperationDuration = *promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation_type"},
	)

	// Entity operation metrics
	EntityOperationsCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_operations_total",
			Help: "Total number of supplier, item and order operations",
		},
		[]string{"entity", "operation"},
	)

	// Sequence-code collision retries
	SequenceRetriesCounter = *promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_sequence_retries_total",
			Help: "Total number of sequence-code collision retries",
		},
		[]string{"entity"},
	)

	// Active entity gauges
	ActiveSuppliersGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_active_suppliers",
			Help: "Number of suppliers with Active status",
		},
	)

	ActiveItemsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "_active_items",
			Help: "Number of items with Enabled status",
		},
	)
}

// TrackDBOperation returns a function that records the duration of a database operation
func TrackDBOperation(operationType string) func(startTime time.Time) {
	return func(startTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DbOperationDuration.WithLabelValues(operationType).Observe(duration)
	}
}

// RecordOperation increments the counter for entity operations
func RecordOperation(entity, operation string) {
	EntityOperationsCounter.WithLabelValues(entity, operation).Inc()
}

// RecordSequenceRetry increments the sequence retry counter for an entity
func RecordSequenceRetry(entity string) {
	SequenceRetriesCounter.WithLabelValues(entity).Inc()
}

// UpdateActiveSuppliers updates the active suppliers gauge
func UpdateActiveSuppliers(count int64) {
	ActiveSuppliersGauge.Set(float64(count))
}

// UpdateActiveItems updates the active items gauge
func UpdateActiveItems(count int64) {
	ActiveItemsGauge.Set(float64(count))
}
