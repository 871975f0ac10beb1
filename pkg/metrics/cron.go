package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CronMetrics records cron-worker job runs and purged sessions.
type CronMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	purged   prometheus.Counter
}

// NewCronMetrics registers the cron metrics on the provided registerer.
func NewCronMetrics(reg prometheus.Registerer) *CronMetrics {
	if reg == nil {
		return &CronMetrics{}
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cron_job_runs_total",
		Help: "Cron job runs by job and outcome.",
	}, []string{"job", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "cron_job_duration_seconds",
		Help:    "Duration of cron jobs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	purged := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cart_sessions_purged_total",
		Help: "Idle cart sessions removed by the purge job.",
	})
	reg.MustRegister(runs, duration, purged)
	return &CronMetrics{
		runs:     runs,
		duration: duration,
		purged:   purged,
	}
}

// ObserveRun counts one job run and records its duration.
func (c *CronMetrics) ObserveRun(job, outcome string, duration time.Duration) {
	if c == nil || c.runs == nil {
		return
	}
	job = normalizeLabel(job)
	c.runs.WithLabelValues(job, normalizeLabel(outcome)).Inc()
	c.duration.WithLabelValues(job).Observe(duration.Seconds())
}

// AddPurged adds n to the purged sessions counter.
func (c *CronMetrics) AddPurged(n int64) {
	if c == nil || c.purged == nil || n <= 0 {
		return
	}
	c.purged.Add(float64(n))
}
