package errors

import (
	"errors"
	"sync"
	"time"
)

const (
	breakerErrorThreshold      = 0.5
	breakerMinRequests         = 10
	breakerOpenTimeout         = 30 * time.Second
	breakerHalfOpenMaxRequests = 3
)

// BreakerState enumerates the circuit breaker states.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

var (
	// ErrCircuitOpen indicates the breaker is rejecting calls outright.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	errHalfOpenTooManyRequests = errors.New("too many requests in half-open")
)

// CircuitBreaker protects an external dependency from being hammered while it
// is failing. Used in front of the Telegram membership lookups, where a
// rejected call is treated the same as a failed one (deny, never allow).
type CircuitBreaker struct {
	mu              sync.Mutex
	state           BreakerState
	failures        int
	successes       int
	requests        int
	lastFailureTime time.Time
}

func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		state: BreakerClosed,
	}
}

// Call executes fn subject to the breaker state.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if fn == nil {
		return nil
	}

	cb.mu.Lock()
	if cb.state == BreakerOpen {
		if time.Since(cb.lastFailureTime) < breakerOpenTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}

		cb.state = BreakerHalfOpen
		cb.requests = 0
		cb.successes = 0
		cb.failures = 0
	}

	if cb.state == BreakerHalfOpen && cb.requests >= breakerHalfOpenMaxRequests {
		cb.mu.Unlock()
		return errHalfOpenTooManyRequests
	}

	cb.requests++
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.lastFailureTime = time.Now()

		switch cb.state {
		case BreakerHalfOpen:
			cb.state = BreakerOpen
		case BreakerClosed:
			if cb.requests >= breakerMinRequests &&
				float64(cb.failures)/float64(cb.requests) >= breakerErrorThreshold {
				cb.state = BreakerOpen
			}
		}

		return err
	}

	cb.successes++

	if cb.state == BreakerHalfOpen && cb.successes >= breakerHalfOpenMaxRequests {
		cb.state = BreakerClosed
		cb.requests = 0
		cb.successes = 0
		cb.failures = 0
	}

	return nil
}

// State returns the current breaker state.
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
