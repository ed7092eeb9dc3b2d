package websockify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Byte directions.
const (
	Upstream   = "upstream"
	Downstream = "downstream"
)

// metrics holds the proxy's Prometheus collectors.
type metrics struct {
	activeSessions prometheus.Gauge
	sessionsTotal  prometheus.Counter
	bytesTotal     *prometheus.CounterVec
	dialFailures   prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)

	return &metrics{
		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "printdesk",
			Subsystem: "websockify",
			Name:      "active_sessions",
			Help:      "Number of open proxy sessions",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "printdesk",
			Subsystem: "websockify",
			Name:      "sessions_total",
			Help:      "Total number of proxy sessions",
		}),
		bytesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "printdesk",
			Subsystem: "websockify",
			Name:      "bytes_total",
			Help:      "Bytes relayed by direction",
		}, []string{"direction"}),
		dialFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "printdesk",
			Subsystem: "websockify",
			Name:      "dial_failures_total",
			Help:      "Total number of failed TCP dials",
		}),
	}
}
