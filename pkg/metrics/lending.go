package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LendingMetrics records outcomes of borrow/return operations.
type LendingMetrics struct {
	duration *prometheus.HistogramVec
	success  *prometheus.CounterVec
	rejected *prometheus.CounterVec
}

// NewLendingMetrics registers the lending metrics on the provided registerer.
func NewLendingMetrics(reg prometheus.Registerer) *LendingMetrics {
	if reg == nil {
		return &LendingMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lending_op_duration_seconds",
		Help:    "Duration of lending operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_op_success",
		Help: "Successful lending operations.",
	}, []string{"op"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lending_op_rejected",
		Help: "Lending operations rejected by the state machine.",
	}, []string{"op"})
	reg.MustRegister(duration, success, rejected)
	return &LendingMetrics{
		duration: duration,
		success:  success,
		rejected: rejected,
	}
}

// ObserveDuration records the duration for the named operation.
func (l *LendingMetrics) ObserveDuration(op string, duration time.Duration) {
	if l == nil || l.duration == nil {
		return
	}
	l.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the named operation.
func (l *LendingMetrics) IncSuccess(op string) {
	if l == nil || l.success == nil {
		return
	}
	l.success.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncRejected increments the rejection counter for the named operation.
func (l *LendingMetrics) IncRejected(op string) {
	if l == nil || l.rejected == nil {
		return
	}
	l.rejected.WithLabelValues(normalizeLabel(op)).Inc()
}

func normalizeLabel(op string) string {
	if op == "" {
		return "unknown"
	}
	return op
}
