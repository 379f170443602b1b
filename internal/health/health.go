// Package health provides health check and readiness probe HTTP handlers.
// Liveness is unconditional; readiness checks the three downstream services
// (breaker state first, TCP dial as the definitive check) and the redis
// instance backing the retry queue.
package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/triptech/booking-gateway/internal/circuitbreaker"
)

// Pre-serialized liveness response avoids json.Encoder allocation.
var livenessBody = []byte(`{"status":"ok"}` + "\n")

const readinessCacheTTL = 5 * time.Second

// Target is one downstream service checked by the readiness probe.
type Target struct {
	Name    string
	URL     string
	Breaker circuitbreaker.Breaker
}

// Handler provides the /health and /ready endpoints.
type Handler struct {
	targets []Target
	rdb     redis.UniversalClient
	logger  *slog.Logger

	// Cached readiness result to avoid TCP-dialling every service on
	// every /ready poll. Protected by cacheMu.
	cacheMu      sync.RWMutex
	cachedResult []byte
	cachedStatus int
	cachedAt     time.Time
}

// New creates a health Handler over the downstream targets and the retry
// queue's redis client. rdb may be nil when redis is not configured.
func New(targets []Target, rdb redis.UniversalClient, logger *slog.Logger) *Handler {
	return &Handler{targets: targets, rdb: rdb, logger: logger}
}

// RegisterRoutes adds the probe routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.liveness)
	mux.HandleFunc("/ready", h.readiness)
}

func (h *Handler) liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(livenessBody)
}

type probeResult struct {
	name   string
	status string
	ok     bool
}

func (h *Handler) readiness(w http.ResponseWriter, r *http.Request) {
	h.cacheMu.RLock()
	if h.cachedResult != nil && time.Since(h.cachedAt) < readinessCacheTTL {
		body, status := h.cachedResult, h.cachedStatus
		h.cacheMu.RUnlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write(body)
		return
	}
	h.cacheMu.RUnlock()

	checks := len(h.targets)
	if h.rdb != nil {
		checks++
	}
	ch := make(chan probeResult, checks)

	for _, target := range h.targets {
		go func(target Target) {
			ch <- h.probeTarget(r.Context(), target)
		}(target)
	}
	if h.rdb != nil {
		go func() {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := h.rdb.Ping(ctx).Err(); err != nil {
				h.logger.Warn("redis unreachable", "error", err)
				ch <- probeResult{name: "redis", status: "unreachable", ok: false}
				return
			}
			ch <- probeResult{name: "redis", status: "ok", ok: true}
		}()
	}

	results := make(map[string]string, checks)
	allOK := true
	for i := 0; i < checks; i++ {
		res := <-ch
		results[res.name] = res.status
		if !res.ok {
			allOK = false
		}
	}

	httpStatus := http.StatusOK
	statusStr := "ready"
	if !allOK {
		httpStatus = http.StatusServiceUnavailable
		statusStr = "not ready"
	}

	body, _ := json.Marshal(map[string]any{
		"status":       statusStr,
		"dependencies": results,
	})
	body = append(body, '\n')

	h.cacheMu.Lock()
	h.cachedResult = body
	h.cachedStatus = httpStatus
	h.cachedAt = time.Now()
	h.cacheMu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	w.Write(body)
}

// probeTarget checks one downstream. Breaker state is the fast path: open
// means not ready, half-open means probing but answerable. A closed breaker
// still gets a TCP dial as the definitive check.
func (h *Handler) probeTarget(ctx context.Context, target Target) probeResult {
	if target.Breaker != nil {
		switch target.Breaker.State() {
		case circuitbreaker.StateOpen:
			return probeResult{name: target.Name, status: "circuit-open", ok: false}
		case circuitbreaker.StateHalfOpen:
			return probeResult{name: target.Name, status: "circuit-half-open", ok: true}
		}
	}

	u, err := url.Parse(target.URL)
	if err != nil {
		return probeResult{name: target.Name, status: "invalid URL", ok: false}
	}

	host := u.Host
	if !hasPort(host) {
		switch u.Scheme {
		case "https":
			host += ":443"
		default:
			host += ":80"
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	conn, err := (&net.Dialer{}).DialContext(dialCtx, "tcp", host)
	cancel()
	if err != nil {
		h.logger.Warn("downstream unreachable", "service", target.Name, "url", target.URL, "error", err)
		return probeResult{name: target.Name, status: "unreachable", ok: false}
	}
	conn.Close()
	return probeResult{name: target.Name, status: "ok", ok: true}
}

func hasPort(host string) bool {
	_, _, err := net.SplitHostPort(host)
	return err == nil
}
