// Package downstream provides the client facades for the three backend
// services the gateway aggregates: reservation, loyalty, and payment.
// Every call goes through the service's circuit breaker; outcomes are
// classified as success, failure, not-found, or rejected, and recorded
// against the breaker accordingly.
package downstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/triptech/booking-gateway/internal/circuitbreaker"
	"github.com/triptech/booking-gateway/internal/metrics"
)

// Client issues breaker-gated HTTP calls to one named downstream service.
type Client struct {
	service string
	baseURL string
	http    *http.Client
	breaker circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewClient creates a facade for the named service. The breaker must be the
// process-wide instance for this service, shared across all requests.
func NewClient(service, baseURL string, timeout time.Duration, breaker circuitbreaker.Breaker, logger *slog.Logger) *Client {
	return &Client{
		service: service,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		breaker: breaker,
		logger:  logger,
	}
}

// Service returns the downstream service name.
func (c *Client) Service() string { return c.service }

// do issues one request. username, when non-empty, is sent as X-User-Name.
// body, when non-nil, is marshalled as the JSON request body. out, when
// non-nil, receives the decoded response; a success status whose payload is
// empty or JSON null then yields a not-found outcome.
//
// Outcome rules: a breaker rejection returns KindUnavailable without any
// network I/O and without recording an outcome. A transport error, an
// unreadable or malformed body, or a non-success status records a breaker
// failure. A success status with a parseable body records a breaker success
// even when the payload turns out to be absent — not-found is a caller
// outcome, not a dependency fault.
func (c *Client) do(ctx context.Context, method, path, username string, body, out any) error {
	if !c.breaker.Allow() {
		metrics.DownstreamRequests.WithLabelValues(c.service, "rejected").Inc()
		c.logger.Warn("downstream call rejected by circuit breaker",
			"service", c.service, "method", method, "path", path)
		return &Error{Service: c.service, Kind: KindUnavailable}
	}

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshalling %s request: %w", c.service, err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("building %s request: %w", c.service, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if username != "" {
		req.Header.Set("X-User-Name", username)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.fail(method, path, 0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.fail(method, path, resp.StatusCode, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.fail(method, path, resp.StatusCode, nil)
	}

	payload := bytes.TrimSpace(data)
	if out != nil && len(payload) > 0 && !bytes.Equal(payload, []byte("null")) {
		if err := json.Unmarshal(payload, out); err != nil {
			return c.fail(method, path, resp.StatusCode, err)
		}
		c.breaker.RecordSuccess()
		metrics.DownstreamRequests.WithLabelValues(c.service, "success").Inc()
		return nil
	}

	// Success status, but the payload is empty where one was required.
	c.breaker.RecordSuccess()
	if out != nil {
		metrics.DownstreamRequests.WithLabelValues(c.service, "not_found").Inc()
		return &Error{Service: c.service, Kind: KindNotFound}
	}
	metrics.DownstreamRequests.WithLabelValues(c.service, "success").Inc()
	return nil
}

// fail records a breaker failure and returns the classified error.
func (c *Client) fail(method, path string, status int, err error) error {
	c.breaker.RecordFailure()
	metrics.DownstreamRequests.WithLabelValues(c.service, "failure").Inc()
	c.logger.Warn("downstream call failed",
		"service", c.service, "method", method, "path", path,
		"status", status, "error", err)
	return &Error{Service: c.service, Kind: KindFailure, Status: status, Err: err}
}
