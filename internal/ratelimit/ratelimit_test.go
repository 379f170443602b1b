package ratelimit

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/triptech/booking-gateway/internal/config"
)

func newTestLimiter(t *testing.T, rps float64, burst int, trustedProxies []string) *Limiter {
	t.Helper()
	l := New(config.RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}, trustedProxies, slog.Default())
	t.Cleanup(l.Stop)
	return l
}

func serve(l *Limiter, remoteAddr, xff string) int {
	h := l.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/hotels", nil)
	req.RemoteAddr = remoteAddr
	if xff != "" {
		req.Header.Set("X-Forwarded-For", xff)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestLimiter_BurstThenReject(t *testing.T) {
	l := newTestLimiter(t, 1, 3, nil)

	for i := 0; i < 3; i++ {
		if code := serve(l, "10.1.1.1:5000", ""); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, code)
		}
	}
	if code := serve(l, "10.1.1.1:5000", ""); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after burst exhausted", code)
	}
}

func TestLimiter_RejectionBody(t *testing.T) {
	l := newTestLimiter(t, 1, 1, nil)

	serve(l, "10.1.1.2:5000", "")
	h := l.Middleware()(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/hotels", nil)
	req.RemoteAddr = "10.1.1.2:5000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "GATEWAY_RATE_LIMIT_EXCEEDED") {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l := newTestLimiter(t, 1, 1, nil)

	if code := serve(l, "10.1.1.3:5000", ""); code != http.StatusOK {
		t.Fatalf("first client: status = %d", code)
	}
	if code := serve(l, "10.1.1.3:5000", ""); code != http.StatusTooManyRequests {
		t.Fatalf("first client second request: status = %d, want 429", code)
	}
	// A different client has its own bucket.
	if code := serve(l, "10.1.1.4:5000", ""); code != http.StatusOK {
		t.Errorf("second client: status = %d, want 200", code)
	}
}

func TestLimiter_ForwardedForTrust(t *testing.T) {
	tests := []struct {
		name    string
		trusted []string
		remote  string
		xff     string
		// Same bucket as a follow-up request from wantSameAs means the
		// XFF resolution picked that client identity.
		wantLimited bool
	}{
		{
			name:        "untrusted peer ignores XFF",
			trusted:     nil,
			remote:      "203.0.113.7:1000",
			xff:         "198.51.100.1",
			wantLimited: true, // same peer, same bucket
		},
		{
			name:        "trusted proxy uses XFF client",
			trusted:     []string{"10.0.0.0/8"},
			remote:      "10.0.0.1:1000",
			xff:         "198.51.100.1",
			wantLimited: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLimiter(t, 1, 1, tt.trusted)
			if code := serve(l, tt.remote, tt.xff); code != http.StatusOK {
				t.Fatalf("first request: status = %d", code)
			}
			code := serve(l, tt.remote, tt.xff)
			if tt.wantLimited && code != http.StatusTooManyRequests {
				t.Errorf("second request: status = %d, want 429", code)
			}
		})
	}

	t.Run("distinct XFF clients behind one proxy", func(t *testing.T) {
		l := newTestLimiter(t, 1, 1, []string{"10.0.0.0/8"})
		if code := serve(l, "10.0.0.1:1000", "198.51.100.1"); code != http.StatusOK {
			t.Fatalf("client A: status = %d", code)
		}
		if code := serve(l, "10.0.0.1:1000", "198.51.100.2"); code != http.StatusOK {
			t.Errorf("client B shares A's bucket: status = %d, want 200", code)
		}
	})
}

func TestLimiter_UpdateConfigResetsBuckets(t *testing.T) {
	l := newTestLimiter(t, 1, 1, nil)

	serve(l, "10.1.1.5:5000", "")
	if code := serve(l, "10.1.1.5:5000", ""); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 before update", code)
	}

	l.UpdateConfig(config.RateLimitConfig{RequestsPerSecond: 100, BurstSize: 10})
	if code := serve(l, "10.1.1.5:5000", ""); code != http.StatusOK {
		t.Errorf("status = %d, want 200 after limits raised", code)
	}
}
