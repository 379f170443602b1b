package middleware

import (
	"net/http"

	"github.com/triptech/booking-gateway/internal/apierror"
)

// BodyLimit returns middleware that limits the size of request bodies.
// Requests exceeding maxBytes receive a 413 response. Content-Length is
// checked upfront for an early reject; the body is also wrapped with
// http.MaxBytesReader as a safety net for chunked/streaming requests.
func BodyLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				apierror.WriteJSON(w, r, http.StatusRequestEntityTooLarge, apierror.BodyTooLarge, "request body exceeds maximum allowed size")
				return
			}
			if r.Body != nil && r.ContentLength != 0 {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}
