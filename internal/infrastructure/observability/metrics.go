package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	registry             *prometheus.Registry
	ActiveSessions       prometheus.Gauge
	EventsTotal          *prometheus.CounterVec
	DecodeErrorsTotal    prometheus.Counter
	PendingRequests      prometheus.Gauge
	DeliveriesTotal      prometheus.Counter
	DeliveredBytesTotal  prometheus.Counter
	DrainedRequestsTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "videobridge",
			Name:      "active_sessions",
			Help:      "Number of active playback sessions",
		}),
		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videobridge",
			Name:      "events_total",
			Help:      "Total decoded engine events by kind",
		}, []string{"kind"}),
		DecodeErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "videobridge",
			Name:      "decode_errors_total",
			Help:      "Total malformed engine events dropped",
		}),
		PendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "videobridge",
			Name:      "pending_requests",
			Help:      "In-flight fetch requests across all sessions",
		}),
		DeliveriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "videobridge",
			Name:      "deliveries_total",
			Help:      "Total data deliveries forwarded to the engine",
		}),
		DeliveredBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "videobridge",
			Name:      "delivered_bytes_total",
			Help:      "Total bytes delivered to the engine",
		}),
		DrainedRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "videobridge",
			Name:      "drained_requests_total",
			Help:      "Total pending requests drained at session disposal",
		}),
	}
	r.MustRegister(m.ActiveSessions, m.EventsTotal, m.DecodeErrorsTotal,
		m.PendingRequests, m.DeliveriesTotal, m.DeliveredBytesTotal, m.DrainedRequestsTotal)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
