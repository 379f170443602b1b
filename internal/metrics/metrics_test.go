package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestCollectors_Gatherable(t *testing.T) {
	// Use a custom registry to avoid conflicts with other tests.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
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

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
}

func TestCounters_Increment(t *testing.T) {
	RequestsTotal.WithLabelValues("/api/v1/hotels", "GET", "200").Inc()
	DownstreamRequests.WithLabelValues("loyalty", "failure").Inc()
	CircuitBreakerTransitions.WithLabelValues("payment", "closed", "open").Inc()
	SagaTotal.WithLabelValues("booking", "compensated").Inc()
	SagaCompensations.WithLabelValues("booking", "delete payment").Inc()
	RetryQueueOps.WithLabelValues("requeue").Inc()
	// Should not panic
}

func TestGauges_Set(t *testing.T) {
	CircuitBreakerState.WithLabelValues("reservation").Set(1)
	RetryQueueDepth.Set(3)
	RetryQueueDepth.Set(0)
	// Should not panic
}

func TestHandler_ReturnsPrometheusFormat(t *testing.T) {
	// Register metrics with the default registry for the handler test.
	Init()

	RequestsTotal.WithLabelValues("/api/v1/me", "GET", "200").Inc()
	RetryQueueDepth.Set(1)

	h := Handler()
	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	body, _ := io.ReadAll(rec.Body)
	bodyStr := string(body)

	if !strings.Contains(bodyStr, "gateway_requests_total") {
		t.Error("expected gateway_requests_total in metrics output")
	}
	if !strings.Contains(bodyStr, "gateway_retry_queue_depth") {
		t.Error("expected gateway_retry_queue_depth in metrics output")
	}
}
