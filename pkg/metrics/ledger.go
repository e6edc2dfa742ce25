package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records outcomes of stock and purchase ledger operations.
type LedgerMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	failure  *prometheus.CounterVec
	quantity *prometheus.CounterVec
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_operation_duration_seconds",
		Help:    "Duration of ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operation_success",
		Help: "Successful ledger operations.",
	}, []string{"operation"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_operation_failure",
		Help: "Failed ledger operations.",
	}, []string{"operation"})
	quantity := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_units_moved_total",
		Help: "Units of stock moved by ledger operations.",
	}, []string{"operation"})
	reg.MustRegister(duration, success, failure, quantity)
	return &LedgerMetrics{
		duration: duration,
		success:  success,
		failure:  failure,
		quantity: quantity,
	}
}

// ObserveDuration records the duration for the named operation.
func (l *LedgerMetrics) ObserveDuration(operation string, duration time.Duration) {
	if l == nil || l.duration == nil {
		return
	}
	l.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (l *LedgerMetrics) IncSuccess(operation string) {
	if l == nil || l.success == nil {
		return
	}
	l.success.WithLabelValues(normalizeLabel(operation)).Inc()
}

// IncFailure increments the failure counter for the named operation.
func (l *LedgerMetrics) IncFailure(operation string) {
	if l == nil || l.failure == nil {
		return
	}
	l.failure.WithLabelValues(normalizeLabel(operation)).Inc()
}

// AddUnitsMoved records how many stock units an operation moved.
func (l *LedgerMetrics) AddUnitsMoved(operation string, units int) {
	if l == nil || l.quantity == nil || units <= 0 {
		return
	}
	l.quantity.WithLabelValues(normalizeLabel(operation)).Add(float64(units))
}

func normalizeLabel(operation string) string {
	if operation == "" {
		return "unknown"
	}
	return operation
}
