package apiclient

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes, used as the "result" label.
const (
	resultOK           = "ok"
	resultUnauthorized = "unauthorized"
	resultError        = "error"
	resultTransport    = "transport"
)

// Metrics counts backend calls per outcome.
type Metrics struct {
	requests *prometheus.CounterVec
	duration prometheus.Histogram
}

// NewMetrics registers the client metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "smartkrishi",
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Counter of backend requests made per result type.",
			},
			[]string{"result"},
		),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "smartkrishi",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Duration of backend requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // from 5ms to ~10s
		}),
	}
}

func (m *Metrics) observe(result string, seconds float64) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(result).Inc()
	m.duration.Observe(seconds)
}
