package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// Questions answered, by intent and outcome
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbqa",
			Subsystem: "engine",
			Name:      "questions_total",
			Help:      "Total questions processed",
		},
		[]string{"intent", "outcome"},
	)

	AskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbqa",
			Subsystem: "engine",
			Name:      "ask_duration_seconds",
			Help:      "End-to-end question duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
		},
		[]string{"outcome"},
	)

	ResponderCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbqa",
			Subsystem: "engine",
			Name:      "responder_calls_total",
			Help:      "Total responder calls",
		},
		[]string{"responder", "status"},
	)

	ResponderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kbqa",
			Subsystem: "engine",
			Name:      "responder_duration_seconds",
			Help:      "Responder call duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2},
		},
		[]string{"responder"},
	)

	KnowledgeQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "kbqa",
			Subsystem: "kb",
			Name:      "query_duration_seconds",
			Help:      "Knowledge base query duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		},
	)

	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbqa",
			Subsystem: "kb",
			Name:      "cache_hits_total",
			Help:      "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMissesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kbqa",
			Subsystem: "kb",
			Name:      "cache_misses_total",
			Help:      "Total cache misses",
		},
		[]string{"cache_type"},
	)

	ActiveConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "kbqa",
			Subsystem: "engine",
			Name:      "active_conversations",
			Help:      "Conversations currently held in memory",
		},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

func RecordQuestion(intent, outcome string, durationSec float64) {
	QuestionsTotal.WithLabelValues(intent, outcome).Inc()
	AskDuration.WithLabelValues(outcome).Observe(durationSec)
}

func RecordResponderCall(responder, status string, durationSec float64) {
	ResponderCallsTotal.WithLabelValues(responder, status).Inc()
	ResponderDuration.WithLabelValues(responder).Observe(durationSec)
}

func RecordKnowledgeQuery(durationSec float64) {
	KnowledgeQueryDuration.Observe(durationSec)
}

func RecordCacheHit(cacheType string) {
	CacheHitsTotal.WithLabelValues(cacheType).Inc()
}

func RecordCacheMiss(cacheType string) {
	CacheMissesTotal.WithLabelValues(cacheType).Inc()
}

func SetActiveConversations(n int) {
	ActiveConversations.Set(float64(n))
}
