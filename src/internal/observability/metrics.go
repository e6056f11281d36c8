package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is nil-safe: every method is a no-op on a nil receiver, so
// components can be built without metrics in tests.
type Metrics struct {
	registry *prometheus.Registry

	backendRequests    *prometheus.CounterVec
	backendLatency     *prometheus.HistogramVec
	progressWrites     *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
	sessionTransitions *prometheus.CounterVec
	clientLogs         *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnhub",
			Name:      "backend_requests_total",
			Help:      "Backend requests by operation and outcome.",
		}, []string{"op", "outcome"}),
		backendLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "learnhub",
			Name:      "backend_request_seconds",
			Help:      "Backend request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		progressWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnhub",
			Name:      "progress_writes_total",
			Help:      "Lesson progress writes by outcome (ok, dropped, stale).",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnhub",
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups by result (hit, miss, shared).",
		}, []string{"result"}),
		sessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnhub",
			Name:      "session_transitions_total",
			Help:      "Session state transitions by target status.",
		}, []string{"to"}),
		clientLogs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "learnhub",
			Name:      "client_logs_total",
			Help:      "Log lines forwarded by browser clients.",
		}, []string{"level"}),
	}
	reg.MustRegister(
		m.backendRequests,
		m.backendLatency,
		m.progressWrites,
		m.cacheLookups,
		m.sessionTransitions,
		m.clientLogs,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveBackendRequest(op, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(op, outcome).Inc()
	m.backendLatency.WithLabelValues(op).Observe(seconds)
}

func (m *Metrics) ProgressWrite(outcome string) {
	if m == nil {
		return
	}
	m.progressWrites.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) SessionTransition(to string) {
	if m == nil {
		return
	}
	m.sessionTransitions.WithLabelValues(to).Inc()
}

func (m *Metrics) ClientLog(level string) {
	if m == nil {
		return
	}
	m.clientLogs.WithLabelValues(level).Inc()
}
