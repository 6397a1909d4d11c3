package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	loginOutcomesTotal    *prometheus.CounterVec
	integrityRejectsTotal *prometheus.CounterVec
	eventPublishFailures  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labeval_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "labeval_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labeval_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		loginOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labeval_login_outcomes_total",
			Help: "Login attempts partitioned by outcome.",
		}, []string{"outcome"})

		integrityRejectsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "labeval_integrity_rejections_total",
			Help: "Writes rejected by referential integrity checks.",
		}, []string{"entity", "reason"})

		eventPublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "labeval_event_publish_failures_total",
			Help: "Evaluation events that could not be published.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			loginOutcomesTotal,
			integrityRejectsTotal,
			eventPublishFailures,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// LoginOutcomes counts login attempts by outcome (success, unverified, not_provisioned, identity_mismatch, error).
func LoginOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return loginOutcomesTotal
}

// IntegrityRejections counts writes refused by the integrity validator or the store constraints.
func IntegrityRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return integrityRejectsTotal
}

// EventPublishFailures counts evaluation events dropped because the broker rejected them.
func EventPublishFailures() prometheus.Counter {
	RegisterMetrics()
	return eventPublishFailures
}
