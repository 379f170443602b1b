package circuitbreaker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/triptech/booking-gateway/internal/metrics"
)

// ConsecutiveBreaker opens after failureThreshold consecutive failures and
// probes recovery after resetTimeout. It is purely reactive: state changes
// only inside Allow, RecordSuccess, RecordFailure, or Reset — there is no
// background timer.
type ConsecutiveBreaker struct {
	mu sync.Mutex

	state   State
	service string
	logger  *slog.Logger

	failures         int
	failureThreshold int
	resetTimeout     time.Duration
	openedAt         time.Time
}

// New creates a circuit breaker for the given downstream service.
func New(service string, failureThreshold int, resetTimeout time.Duration, logger *slog.Logger) *ConsecutiveBreaker {
	return &ConsecutiveBreaker{
		state:            StateClosed,
		service:          service,
		logger:           logger,
		failureThreshold: failureThreshold,
		resetTimeout:     resetTimeout,
	}
}

// Allow reports whether a downstream call may be attempted. On an open
// circuit whose reset timeout has elapsed, the call that observes the
// elapsed deadline moves the breaker to half-open and is let through as
// the trial request. Half-open does not track in-flight trials, so
// concurrent callers may all be admitted until an outcome is recorded.
func (b *ConsecutiveBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if time.Since(b.openedAt) >= b.resetTimeout {
			b.transitionTo(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess closes the breaker and zeroes the failure count, whatever
// the prior state. A single successful trial is enough to recover.
func (b *ConsecutiveBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.transitionTo(StateClosed)
}

// RecordFailure increments the consecutive failure count. Crossing the
// threshold opens the circuit and stamps the open time; a failure while
// already open or half-open re-arms the reset timeout.
func (b *ConsecutiveBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures >= b.failureThreshold {
		b.openedAt = time.Now()
		b.transitionTo(StateOpen)
	}
}

// State returns the current breaker state.
func (b *ConsecutiveBreaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current consecutive failure count. Exposed for the
// admin API.
func (b *ConsecutiveBreaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// Service returns the downstream service name this breaker guards.
func (b *ConsecutiveBreaker) Service() string {
	return b.service
}

// Reset is the administrative hard reset back to closed.
func (b *ConsecutiveBreaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.transitionTo(StateClosed)
}

// transitionTo changes the breaker state, emitting metrics and logging.
// Must be called with b.mu held.
func (b *ConsecutiveBreaker) transitionTo(newState State) {
	if b.state == newState {
		return
	}

	from := b.state
	b.state = newState

	metrics.CircuitBreakerTransitions.WithLabelValues(b.service, from.String(), newState.String()).Inc()
	metrics.CircuitBreakerState.WithLabelValues(b.service).Set(float64(newState))

	b.logger.Info("circuit breaker state change",
		"service", b.service,
		"from", from.String(),
		"to", newState.String(),
		"failures", b.failures,
	)
}
