package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/triptech/booking-gateway/internal/metrics"
)

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Logging returns middleware that logs each request as structured JSON with
// method, route, status, latency, and client IP, and records the request
// counter and latency histogram. patternOf resolves a request to its route
// pattern; the pattern, not the raw path, is used as the metrics label so
// reservation UIDs do not explode cardinality. Pass nil to label every
// request with its path instead.
func Logging(logger *slog.Logger, patternOf func(*http.Request) string) func(http.Handler) http.Handler {
	if patternOf == nil {
		patternOf = func(r *http.Request) string { return r.URL.Path }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			elapsed := time.Since(start)
			endpoint := patternOf(r)
			if endpoint == "" {
				endpoint = "unmatched"
			}

			metrics.RequestsTotal.WithLabelValues(endpoint, r.Method, strconv.Itoa(recorder.statusCode)).Inc()
			metrics.RequestDuration.WithLabelValues(endpoint, r.Method).Observe(elapsed.Seconds())

			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", recorder.statusCode,
				"latency_ms", elapsed.Milliseconds(),
				"client_ip", r.RemoteAddr,
				"request_id", GetRequestID(r.Context()),
			)
		})
	}
}

// MuxPattern returns a patternOf resolver backed by mux's routing table.
func MuxPattern(mux *http.ServeMux) func(*http.Request) string {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}
