package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// CartMetrics records cart mutations and checkout attempts.
type CartMetrics struct {
	operations       *prometheus.CounterVec
	checkouts        *prometheus.CounterVec
	checkoutDuration *prometheus.HistogramVec
}

// NewCartMetrics registers the cart metrics on the provided registerer.
func NewCartMetrics(reg prometheus.Registerer) *CartMetrics {
	if reg == nil {
		return &CartMetrics{}
	}
	operations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart operations by name and outcome.",
	}, []string{"operation", "outcome"})
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_total",
		Help: "Checkout attempts by mode and outcome.",
	}, []string{"mode", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout attempts in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"mode"})
	reg.MustRegister(operations, checkouts, duration)
	return &CartMetrics{
		operations:       operations,
		checkouts:        checkouts,
		checkoutDuration: duration,
	}
}

// ObserveCartOperation counts one cart operation.
func (c *CartMetrics) ObserveCartOperation(operation, outcome string) {
	if c == nil || c.operations == nil {
		return
	}
	c.operations.WithLabelValues(normalizeLabel(operation), normalizeLabel(outcome)).Inc()
}

// ObserveCheckout counts a checkout attempt and records its duration.
func (c *CartMetrics) ObserveCheckout(mode, outcome string, duration time.Duration) {
	if c == nil || c.checkouts == nil {
		return
	}
	mode = normalizeLabel(mode)
	c.checkouts.WithLabelValues(mode, normalizeLabel(outcome)).Inc()
	c.checkoutDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
