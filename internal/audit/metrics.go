package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks audit log health. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Appended      *prometheus.CounterVec
	WriteFailures prometheus.Counter
	StreamDropped prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Appended: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_audit_entries_total",
			Help: "Audit entries appended by action",
		}, []string{"action"}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_audit_write_failures_total",
			Help: "Audit entries that could not be persisted (business action proceeded)",
		}),
		StreamDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "procura_audit_stream_dropped_total",
			Help: "Audit entries not mirrored to the stream because the buffer was full",
		}),
	}
}

func (m *Metrics) incAppended(action Action) {
	if m != nil {
		m.Appended.WithLabelValues(string(action)).Inc()
	}
}

func (m *Metrics) incWriteFailures() {
	if m != nil {
		m.WriteFailures.Inc()
	}
}

func (m *Metrics) incStreamDropped() {
	if m != nil {
		m.StreamDropped.Inc()
	}
}
