package downstream

import (
	"errors"
	"fmt"
)

// Kind classifies the outcome of a downstream call.
type Kind int

const (
	// KindUnavailable means the circuit breaker rejected the call before
	// any network I/O was attempted.
	KindUnavailable Kind = iota
	// KindFailure means the call was attempted and failed: transport
	// error, malformed response body, or a non-success status code.
	KindFailure
	// KindNotFound means the service responded successfully but the
	// requested entity is absent. Does not count against the breaker.
	KindNotFound
)

// Error is the error type returned by every dependency client facade.
// Handlers map Kind and Status to HTTP responses: KindUnavailable → 503,
// KindNotFound → 404, KindFailure → the downstream status when one was
// received, otherwise 503.
type Error struct {
	Service string
	Kind    Kind
	Status  int   // downstream HTTP status, 0 when no response was received
	Err     error // underlying transport or decode error, may be nil
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnavailable:
		return fmt.Sprintf("%s service unavailable: circuit open", e.Service)
	case KindNotFound:
		return fmt.Sprintf("%s service: entity not found", e.Service)
	default:
		if e.Status != 0 {
			return fmt.Sprintf("%s service returned status %d", e.Service, e.Status)
		}
		return fmt.Sprintf("%s service call failed: %v", e.Service, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// AsError unwraps err into a downstream *Error when possible.
func AsError(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsNotFound reports whether err is a downstream not-found outcome.
func IsNotFound(err error) bool {
	de, ok := AsError(err)
	return ok && de.Kind == KindNotFound
}

// IsUnavailable reports whether err is a breaker rejection.
func IsUnavailable(err error) bool {
	de, ok := AsError(err)
	return ok && de.Kind == KindUnavailable
}
