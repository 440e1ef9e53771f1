package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/curalingo/session-gateway/internal/observability"
)

// ErrCircuitOpen is returned without calling the protected function while the circuit is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState represents the state of a circuit breaker
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal operation
	StateOpen                         // Calls fail fast
	StateHalfOpen                     // Probing whether the upstream recovered
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// probeLimit is the number of successful half-open probes that close the circuit
const probeLimit = 3

// CircuitBreaker guards calls to a single upstream provider
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	state       CircuitState
	failures    int // consecutive failures while closed
	probes      int // half-open calls in flight or done
	probesOK    int
	openedAt    time.Time
	requests    int64
	failedTotal int64
}

// NewCircuitBreaker creates a breaker that opens after maxFailures consecutive
// failures and probes again after resetTimeout
func NewCircuitBreaker(name string, maxFailures int, resetTimeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:         name,
		maxFailures:  max(maxFailures, 1),
		resetTimeout: resetTimeout,
	}
}

// Guard runs fn under cb and returns its result. Calls cancelled by the caller
// are not counted against the upstream.
func Guard[T any](ctx context.Context, cb *CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if !cb.admit() {
		return zero, ErrCircuitOpen
	}

	v, err := fn(ctx)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		cb.release()
		return zero, err
	}

	cb.RecordResult(err == nil)
	if err != nil {
		return zero, err
	}
	return v, nil
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.resetTimeout {
		cb.setState(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		if cb.probes < probeLimit {
			cb.probes++
			return true
		}
	}
	return false
}

// release returns a half-open probe slot taken by a call that did not finish
func (cb *CircuitBreaker) release() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.probes > 0 {
		cb.probes--
	}
}

// RecordResult records the outcome of one upstream call
func (cb *CircuitBreaker) RecordResult(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.requests++
	if !success {
		cb.failedTotal++
		observability.IncrementCircuitBreakerFailures(cb.name)
	}

	switch cb.state {
	case StateClosed:
		if success {
			cb.failures = 0
			return
		}
		cb.failures++
		if cb.failures >= cb.maxFailures {
			cb.setState(StateOpen)
		}

	case StateHalfOpen:
		if !success {
			cb.setState(StateOpen)
			return
		}
		cb.probesOK++
		if cb.probesOK >= probeLimit {
			cb.setState(StateClosed)
		}

	case StateOpen:
		if !success {
			cb.openedAt = time.Now()
		}
	}
}

// setState must be called with mu held
func (cb *CircuitBreaker) setState(state CircuitState) {
	cb.state = state
	cb.failures = 0
	cb.probes = 0
	cb.probesOK = 0
	if state == StateOpen {
		cb.openedAt = time.Now()
	}
	observability.UpdateCircuitBreakerState(cb.name, int(state))
}

// GetState returns the current state of the circuit breaker
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Stats is a snapshot of a breaker's counters
type Stats struct {
	State       CircuitState
	Requests    int64
	Failures    int64
	FailureRate float64 // percent
}

// GetStats returns statistics about the circuit breaker
func (cb *CircuitBreaker) GetStats() Stats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	s := Stats{State: cb.state, Requests: cb.requests, Failures: cb.failedTotal}
	if s.Requests > 0 {
		s.FailureRate = float64(s.Failures) / float64(s.Requests) * 100
	}
	return s
}

// HealthCheck reports unhealthy while the circuit is open
func (cb *CircuitBreaker) HealthCheck(ctx context.Context) (bool, error) {
	if cb.GetState() == StateOpen {
		return false, ErrCircuitOpen
	}
	return true, nil
}
