// Package ratelimit provides per-client-IP token bucket rate limiting
// middleware for the booking gateway.
package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/triptech/booking-gateway/internal/apierror"
	"github.com/triptech/booking-gateway/internal/config"
	"github.com/triptech/booking-gateway/internal/metrics"
)

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter tracks per-client rate limiters and performs periodic cleanup of
// stale entries.
type Limiter struct {
	mu           sync.RWMutex
	clients      map[string]*client
	rate         rate.Limit
	burst        int
	trustedCIDRs []*net.IPNet
	logger       *slog.Logger
	stopCh       chan struct{}
}

// New creates a Limiter with the given settings and starts a background
// goroutine that cleans up stale client entries every minute. trustedProxies
// is a list of CIDR strings (e.g. "10.0.0.0/8") whose X-Forwarded-For
// headers are trusted.
func New(cfg config.RateLimitConfig, trustedProxies []string, logger *slog.Logger) *Limiter {
	l := &Limiter{
		clients:      make(map[string]*client),
		rate:         rate.Limit(cfg.RequestsPerSecond),
		burst:        cfg.BurstSize,
		trustedCIDRs: parseCIDRs(trustedProxies, logger),
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
	go l.cleanup()
	return l
}

func parseCIDRs(cidrs []string, logger *slog.Logger) []*net.IPNet {
	var nets []*net.IPNet
	for _, cidr := range cidrs {
		_, ipNet, err := net.ParseCIDR(cidr)
		if err != nil {
			logger.Warn("invalid trusted proxy CIDR, skipping", "cidr", cidr, "error", err)
			continue
		}
		nets = append(nets, ipNet)
	}
	return nets
}

// Stop terminates the background cleanup goroutine.
func (l *Limiter) Stop() {
	close(l.stopCh)
}

// UpdateConfig hot-reloads the rate limit settings. Existing per-client
// limiters are cleared so the new limits take effect immediately.
func (l *Limiter) UpdateConfig(cfg config.RateLimitConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.rate = rate.Limit(cfg.RequestsPerSecond)
	l.burst = cfg.BurstSize
	l.clients = make(map[string]*client)
}

// Middleware returns an HTTP middleware that enforces the rate limit.
func (l *Limiter) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := l.clientIP(r)

			if !l.getLimiter(ip).Allow() {
				l.logger.Warn("rate limit exceeded", "client_ip", ip, "path", r.URL.Path)
				metrics.RateLimitHits.Inc()
				l.mu.RLock()
				perSecond := float64(l.rate)
				l.mu.RUnlock()
				if perSecond > 0 {
					w.Header().Set("Retry-After", strconv.FormatFloat(1.0/perSecond, 'f', 0, 64))
				}
				apierror.WriteJSON(w, r, http.StatusTooManyRequests, apierror.RateLimitExceeded, "rate limit exceeded, retry later")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the real client IP. X-Forwarded-For is only trusted when
// the direct peer (RemoteAddr) is in the trusted proxies list.
func (l *Limiter) clientIP(r *http.Request) string {
	peerIP := extractIP(r.RemoteAddr)

	if len(l.trustedCIDRs) > 0 && l.isTrusted(peerIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			// Walk right-to-left, return first non-trusted IP.
			parts := strings.Split(xff, ",")
			for i := len(parts) - 1; i >= 0; i-- {
				ip := strings.TrimSpace(parts[i])
				if ip != "" && !l.isTrusted(ip) {
					return ip
				}
			}
		}
	}

	return peerIP
}

func (l *Limiter) isTrusted(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	for _, cidr := range l.trustedCIDRs {
		if cidr.Contains(ip) {
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

// getLimiter returns or creates a rate limiter for the client IP. Read-lock
// for existing clients (the common path), write-lock only for insertions.
// rate.Limiter is internally goroutine-safe so Allow() does not need to be
// called under our lock.
func (l *Limiter) getLimiter(ip string) *rate.Limiter {
	l.mu.RLock()
	if c, exists := l.clients[ip]; exists {
		// Refreshing lastSeen once per minute is enough to beat the
		// three minute eviction threshold.
		if time.Since(c.lastSeen) > 1*time.Minute {
			l.mu.RUnlock()
			l.mu.Lock()
			c.lastSeen = time.Now()
			l.mu.Unlock()
		} else {
			l.mu.RUnlock()
		}
		return c.limiter
	}
	l.mu.RUnlock()

	l.mu.Lock()
	defer l.mu.Unlock()

	if c, exists := l.clients[ip]; exists {
		c.lastSeen = time.Now()
		return c.limiter
	}

	limiter := rate.NewLimiter(l.rate, l.burst)
	l.clients[ip] = &client{limiter: limiter, lastSeen: time.Now()}
	return limiter
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.mu.Lock()
			for ip, c := range l.clients {
				if time.Since(c.lastSeen) > 3*time.Minute {
					delete(l.clients, ip)
				}
			}
			l.mu.Unlock()
		case <-l.stopCh:
			return
		}
	}
}
