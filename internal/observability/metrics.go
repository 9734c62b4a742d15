package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	CompletionErrors  *prometheus.CounterVec
	CompletionLatency *prometheus.HistogramVec
	PromptChars       prometheus.Histogram
	SamplePromptFails *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		CompletionErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_errors_total",
			Help:      "Failed completions by error kind.",
		}, []string{"kind"}),
		CompletionLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Completion round trip latency in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 4000, 8000, 16000},
		}, []string{"model"}),
		PromptChars: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "prompt_chars",
			Help:      "Rendered prompt size in characters.",
			Buckets:   prometheus.ExponentialBuckets(128, 2, 10),
		}),
		SamplePromptFails: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sample_prompt_failures_total",
			Help:      "Sample prompt lookups that fell back to an empty input.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) ObserveCompletion(model string, d time.Duration) {
	m.CompletionLatency.WithLabelValues(model).Observe(float64(d.Milliseconds()))
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
