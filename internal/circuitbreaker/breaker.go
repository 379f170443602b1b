// Package circuitbreaker provides per-dependency circuit breakers that shield
// the gateway from cascading downstream failures. One breaker instance is
// created per backend service at startup and shared by all requests.
package circuitbreaker

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal operation; requests pass through.
	StateOpen                  // Failing; requests are rejected immediately.
	StateHalfOpen              // Probing; requests allowed to test recovery.
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker is the gate consulted before every downstream call.
type Breaker interface {
	// Allow reports whether a request may proceed. Returns false when the
	// circuit is open and the call should be rejected without network I/O.
	// When the reset timeout has elapsed on an open circuit, the first
	// Allow call transitions the breaker to half-open and returns true.
	Allow() bool

	// RecordSuccess records a successful downstream response. The breaker
	// closes and the failure count resets regardless of prior state.
	RecordSuccess()

	// RecordFailure records a failed downstream call (transport error or
	// non-success status).
	RecordFailure()

	// State returns the current circuit breaker state.
	State() State

	// Reset forces the breaker back to closed with a zero failure count.
	Reset()
}
