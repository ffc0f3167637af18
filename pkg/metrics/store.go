package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics tracks domain-store operation counts, latencies, and error
// categories.
//
// A nil *StoreMetrics is valid and all methods are no-ops, so stores can be
// constructed without metrics wiring.
type StoreMetrics struct {
	operations *prometheus.CounterVec
	errors     *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates store metrics registered on the global registry,
// or nil when metrics are disabled.
func NewStoreMetrics() *StoreMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	m := &StoreMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netstore_store_operations_total",
			Help: "Total store operations by store and operation",
		}, []string{"store", "operation"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netstore_store_errors_total",
			Help: "Total store operation errors by store, operation, and error kind",
		}, []string{"store", "operation", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "netstore_store_operation_duration_seconds",
			Help:    "Store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"store", "operation"}),
	}

	reg.MustRegister(m.operations, m.errors, m.duration)
	return m
}

// Observe records one completed operation.
func (m *StoreMetrics) Observe(storeName, operation string, start time.Time, errKind string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(storeName, operation).Inc()
	m.duration.WithLabelValues(storeName, operation).Observe(time.Since(start).Seconds())
	if errKind != "" {
		m.errors.WithLabelValues(storeName, operation, errKind).Inc()
	}
}
