package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for the orchestrator. A nil *Metrics records nothing.
type Metrics struct {
	Raised            *prometheus.CounterVec
	DuplicatesSkipped prometheus.Counter
	Transitions       *prometheus.CounterVec
	ExpiredDeleted    prometheus.Counter
	DispatchFailures  prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Raised: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_notifications_raised_total",
			Help: "Notifications created by type",
		}, []string{"type"}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_notifications_duplicates_suppressed_total",
			Help: "Assignment requests not created because one was already pending",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_notifications_status_transitions_total",
			Help: "Recipient-initiated status transitions by target status",
		}, []string{"status"}),
		ExpiredDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_notifications_expired_deleted_total",
			Help: "Notifications removed by the expiry sweep",
		}),
		DispatchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_notifications_dispatch_failures_total",
			Help: "Notifications whose delivery rows could not be recorded",
		}),
	}
}

func (m *Metrics) incRaised(t Type) {
	if m != nil {
		m.Raised.WithLabelValues(string(t)).Inc()
	}
}

func (m *Metrics) incDuplicateSkipped() {
	if m != nil {
		m.DuplicatesSkipped.Inc()
	}
}

func (m *Metrics) incTransition(s Status) {
	if m != nil {
		m.Transitions.WithLabelValues(string(s)).Inc()
	}
}

func (m *Metrics) addExpired(n int) {
	if m != nil {
		m.ExpiredDeleted.Add(float64(n))
	}
}

func (m *Metrics) incDispatchFailure() {
	if m != nil {
		m.DispatchFailures.Inc()
	}
}
