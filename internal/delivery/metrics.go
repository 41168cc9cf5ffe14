package delivery

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"procura/internal/notification"
)

// Metrics for delivery outcomes. A nil *Metrics records nothing.
type Metrics struct {
	Outcomes    *prometheus.CounterVec
	SendLatency prometheus.Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "procura_delivery_outcomes_total",
			Help: "Delivery attempts by channel and resulting status",
		}, []string{"channel", "status"}),
		SendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "procura_delivery_email_send_seconds",
			Help:    "Latency of email transport calls",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) observeOutcome(ch notification.Channel, status notification.DeliveryStatus) {
	if m != nil {
		m.Outcomes.WithLabelValues(string(ch), string(status)).Inc()
	}
}

func (m *Metrics) observeSendLatency(d time.Duration) {
	if m != nil {
		m.SendLatency.Observe(d.Seconds())
	}
}
