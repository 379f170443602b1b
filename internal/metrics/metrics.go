// Package metrics provides Prometheus instrumentation for the booking
// gateway. All metric collectors are registered via the Init function and
// exposed through the Handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestsTotal counts total requests by endpoint, method, and HTTP status code.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total HTTP requests processed",
		},
		[]string{"endpoint", "method", "status"},
	)

	// RequestDuration observes request latency in seconds by endpoint and method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method"},
	)

	// DownstreamRequests counts calls to backend services by service and outcome
	// (success, failure, not_found, rejected).
	DownstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_downstream_requests_total",
			Help: "Total calls issued to downstream services by outcome",
		},
		[]string{"service", "outcome"},
	)

	// CircuitBreakerState tracks the current breaker state per service
	// (0 = closed, 1 = open, 2 = half-open).
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gateway_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=open, 2=half-open)",
		},
		[]string{"service"},
	)

	// CircuitBreakerTransitions counts breaker state transitions.
	CircuitBreakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_circuit_breaker_transitions_total",
			Help: "Total circuit breaker state transitions",
		},
		[]string{"service", "from", "to"},
	)

	// SagaTotal counts saga executions by saga name and outcome
	// (completed, aborted, compensated).
	SagaTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_saga_total",
			Help: "Total saga executions by outcome",
		},
		[]string{"saga", "outcome"},
	)

	// SagaCompensations counts compensating actions by saga and step.
	SagaCompensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_saga_compensations_total",
			Help: "Total compensating actions executed",
		},
		[]string{"saga", "step"},
	)

	// RetryQueueOps counts retry queue operations (enqueue, drain, requeue).
	RetryQueueOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_retry_queue_ops_total",
			Help: "Total retry queue operations",
		},
		[]string{"op"},
	)

	// RetryQueueDepth tracks the current length of the retry queue. Updated
	// by the drain worker on every cycle.
	RetryQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gateway_retry_queue_depth",
			Help: "Current number of entries in the loyalty retry queue",
		},
	)

	// RateLimitHits counts rate limit rejections.
	RateLimitHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "gateway_rate_limit_hits_total",
			Help: "Total rate limit rejections",
		},
	)
)

// Init registers all metric collectors with the default Prometheus registry.
// Must be called once at startup before handling requests.
func Init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		DownstreamRequests,
		CircuitBreakerState,
		CircuitBreakerTransitions,
		SagaTotal,
		SagaCompensations,
		RetryQueueOps,
		RetryQueueDepth,
		RateLimitHits,
	)
}

// Handler returns an http.Handler that serves the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
