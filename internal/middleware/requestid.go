// Package middleware provides the HTTP middleware chain for the booking
// gateway: panic recovery, request IDs, structured request logging, CORS,
// security headers, body limits, and a global request deadline.
package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type ctxKey string

// RequestIDKey is the context key used to store the request ID.
const RequestIDKey ctxKey = "request_id"

// RequestID returns middleware that ensures every request has an X-Request-ID.
// An incoming ID is preserved; otherwise a new UUID v4 is generated. The ID is
// set on the response header, the request header (so downstream services see
// it), and stored in the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}

		w.Header().Set("X-Request-ID", id)
		r.Header.Set("X-Request-ID", id)

		ctx := context.WithValue(r.Context(), RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID extracts the request ID from a context. Returns empty string
// if no request ID is present.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
