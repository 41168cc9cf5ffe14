package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds process-level Prometheus metrics for background sweeps.
type Metrics struct {
	SweepRuns     *prometheus.CounterVec
	SweepDuration *prometheus.HistogramVec
}

// New creates and registers the sweep metrics.
func New() *Metrics {
	return &Metrics{
		SweepRuns: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_sweep_runs_total",
			Help: "Background sweep runs by sweep and outcome",
		}, []string{"sweep", "outcome"}),
		SweepDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "procura_sweep_duration_seconds",
			Help:    "Duration of background sweep runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"sweep"}),
	}
}

// ObserveSweep records one sweep run.
func (m *Metrics) ObserveSweep(sweep string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.SweepRuns.WithLabelValues(sweep, outcome).Inc()
	m.SweepDuration.WithLabelValues(sweep).Observe(time.Since(started).Seconds())
}
