// Package admin provides admin API endpoints for runtime inspection of
// gateway state: circuit breaker states and counters, retry queue depth,
// and the active configuration. All endpoints are protected by IP
// allowlist; breaker reset is the only mutating operation.
package admin

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/triptech/booking-gateway/internal/circuitbreaker"
	"github.com/triptech/booking-gateway/internal/config"
	"github.com/triptech/booking-gateway/internal/retryqueue"
)

// ConfigProvider abstracts config access for testability.
type ConfigProvider interface {
	Current() *config.Config
}

// Handler provides the admin API endpoints.
type Handler struct {
	reloader    ConfigProvider
	breakers    map[string]*circuitbreaker.ConsecutiveBreaker
	queue       *retryqueue.Queue
	allowedNets []*net.IPNet
	logger      *slog.Logger
}

// New creates an admin Handler. The allowlist CIDRs must be pre-validated
// (config validation ensures this). queue may be nil when redis is not
// configured.
func New(
	reloader ConfigProvider,
	breakers map[string]*circuitbreaker.ConsecutiveBreaker,
	queue *retryqueue.Queue,
	allowlist []string,
	logger *slog.Logger,
) *Handler {
	nets := make([]*net.IPNet, 0, len(allowlist))
	for _, cidr := range allowlist {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			continue // already validated by config
		}
		nets = append(nets, ipNet)
	}
	return &Handler{
		reloader:    reloader,
		breakers:    breakers,
		queue:       queue,
		allowedNets: nets,
		logger:      logger,
	}
}

// RegisterRoutes adds admin routes to the given mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/breakers", h.guard(h.breakersHandler))
	mux.HandleFunc("POST /admin/breakers/{service}/reset", h.guard(h.resetHandler))
	mux.HandleFunc("GET /admin/queue", h.guard(h.queueHandler))
	mux.HandleFunc("GET /admin/config", h.guard(h.configHandler))
}

// guard wraps a handler with IP allowlist checking.
func (h *Handler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r.RemoteAddr)
		if !h.isAllowed(ip) {
			h.logger.Warn("admin access denied", "client_ip", ip, "path", r.URL.Path)
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "Forbidden"})
			return
		}
		next(w, r)
	}
}

func (h *Handler) isAllowed(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, n := range h.allowedNets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}

// breakerStatus is the response type for /admin/breakers.
type breakerStatus struct {
	Service  string `json:"service"`
	State    string `json:"state"`
	Failures int    `json:"failures"`
}

func (h *Handler) breakersHandler(w http.ResponseWriter, r *http.Request) {
	statuses := make([]breakerStatus, 0, len(h.breakers))
	for service, b := range h.breakers {
		statuses = append(statuses, breakerStatus{
			Service:  service,
			State:    b.State().String(),
			Failures: b.Failures(),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"breakers": statuses})
}

func (h *Handler) resetHandler(w http.ResponseWriter, r *http.Request) {
	service := r.PathValue("service")
	b, ok := h.breakers[service]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown service"})
		return
	}

	b.Reset()
	h.logger.Info("circuit breaker reset via admin API",
		"service", service, "client_ip", extractIP(r.RemoteAddr))
	writeJSON(w, http.StatusOK, map[string]string{
		"service": service,
		"state":   b.State().String(),
	})
}

func (h *Handler) queueHandler(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "retry queue not configured"})
		return
	}

	depth, err := h.queue.Len(r.Context())
	if err != nil {
		h.logger.Error("measuring retry queue failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "retry queue unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"channel": h.queue.Channel(),
		"depth":   depth,
	})
}

func (h *Handler) configHandler(w http.ResponseWriter, r *http.Request) {
	cfg := h.reloader.Current()

	// Shallow copy and redact credentials.
	redacted := *cfg
	if redacted.Redis.Password != "" {
		redacted.Redis.Password = "***"
	}
	writeJSON(w, http.StatusOK, redacted)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}
