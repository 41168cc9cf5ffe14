package assignment

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the assignment engine. A nil *Metrics records nothing.
type Metrics struct {
	Decisions      *prometheus.CounterVec
	WriteConflicts prometheus.Counter
	BatchFailures  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_assignment_decisions_total",
			Help: "Department evaluations by resulting action",
		}, []string{"action"}),
		WriteConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_assignment_write_conflicts_total",
			Help: "Assignment compare-and-set attempts lost to a concurrent writer",
		}),
		BatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_assignment_batch_failures_total",
			Help: "Departments that failed evaluation during a batch run",
		}),
	}
}

func (m *Metrics) incDecision(a Action) {
	if m != nil {
		m.Decisions.WithLabelValues(string(a)).Inc()
	}
}

func (m *Metrics) incWriteConflict() {
	if m != nil {
		m.WriteConflicts.Inc()
	}
}

func (m *Metrics) incBatchFailure() {
	if m != nil {
		m.BatchFailures.Inc()
	}
}
