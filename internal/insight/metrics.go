package insight

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for model calls.
type Metrics struct {
	RequestsTotal  *prometheus.CounterVec
	FallbacksTotal *prometheus.CounterVec
	Duration       *prometheus.HistogramVec
}

// NewMetrics creates the insight metrics and registers them on reg. A nil
// reg leaves them unregistered but usable.
//
// Metrics:
//   - dreamlog_ai_requests_total{operation,result}
//   - dreamlog_ai_decode_fallbacks_total{operation}
//   - dreamlog_ai_request_duration_seconds{operation}
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dreamlog_ai_requests_total",
				Help: "Total number of text-generation requests",
			},
			[]string{"operation", "result"}, // result: ok, timeout, error
		),
		FallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dreamlog_ai_decode_fallbacks_total",
				Help: "Responses that could not be decoded and were replaced by placeholder content",
			},
			[]string{"operation"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dreamlog_ai_request_duration_seconds",
				Help:    "Duration of text-generation requests in seconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
			},
			[]string{"operation"},
		),
	}
}

func (m *Metrics) recordRequest(operation, result string, seconds float64) {
	m.RequestsTotal.WithLabelValues(operation, result).Inc()
	m.Duration.WithLabelValues(operation).Observe(seconds)
}

func (m *Metrics) recordFallback(operation string) {
	m.FallbacksTotal.WithLabelValues(operation).Inc()
}
