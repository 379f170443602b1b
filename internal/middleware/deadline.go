package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/triptech/booking-gateway/internal/apierror"
)

// Deadline returns middleware that applies a global request deadline to the
// entire chain. If the deadline fires before the handler completes, a 504
// Gateway Timeout is returned. Pass 0 to disable.
func Deadline(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if timeout <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			dw := &deadlineWriter{ResponseWriter: w}

			go func() {
				next.ServeHTTP(dw, r.WithContext(ctx))
				close(done)
			}()

			select {
			case <-done:
			case <-ctx.Done():
				// Only write the 504 if the handler has not started
				// streaming a response yet.
				if dw.tryClaimWrite() {
					apierror.WriteJSON(w, r, http.StatusGatewayTimeout, apierror.DeadlineExceeded, "global request deadline exceeded")
				}
				// Wait for the handler goroutine to finish to avoid leaks.
				<-done
			}
		})
	}
}

// deadlineWriter tracks whether any bytes have been written, preventing the
// deadline path from sending a 504 after the response has started.
type deadlineWriter struct {
	http.ResponseWriter
	claimed bool
}

// tryClaimWrite claims the right to write. The two callers are synchronized
// via the done channel and context cancellation.
func (dw *deadlineWriter) tryClaimWrite() bool {
	if dw.claimed {
		return false
	}
	dw.claimed = true
	return true
}

func (dw *deadlineWriter) WriteHeader(code int) {
	dw.claimed = true
	dw.ResponseWriter.WriteHeader(code)
}

func (dw *deadlineWriter) Write(b []byte) (int, error) {
	dw.claimed = true
	return dw.ResponseWriter.Write(b)
}
