package inference

import (
	"sync/atomic"
	"time"
)

// CircuitState is the breaker position.
type CircuitState int32

const (
	// CircuitClosed lets calls through.
	CircuitClosed CircuitState = iota
	// CircuitOpen fails calls fast until the open window elapses.
	CircuitOpen
)

func (s CircuitState) String() string {
	if s == CircuitOpen {
		return "open"
	}
	return "closed"
}

// CircuitBreaker stops calling a failing service for a while after a run of
// consecutive failures. When the open window has elapsed the next call is
// let through as a probe; its outcome decides the next state.
type CircuitBreaker struct {
	state     atomic.Int32
	failures  atomic.Int64
	openUntil atomic.Int64 // unix nanoseconds

	maxFailures int64
	openFor     time.Duration
	now         func() time.Time
}

// NewCircuitBreaker creates a breaker. maxFailures below 1 is treated as 1
// and openFor below one millisecond as one millisecond.
func NewCircuitBreaker(maxFailures int, openFor time.Duration, now func() time.Time) *CircuitBreaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	if openFor < time.Millisecond {
		openFor = time.Millisecond
	}
	if now == nil {
		now = time.Now
	}
	cb := &CircuitBreaker{
		maxFailures: int64(maxFailures),
		openFor:     openFor,
		now:         now,
	}
	cb.state.Store(int32(CircuitClosed))
	return cb
}

// Allow reports whether a call may be attempted. An expired open window
// closes the circuit and resets the failure count.
func (cb *CircuitBreaker) Allow() bool {
	if CircuitState(cb.state.Load()) != CircuitOpen {
		return true
	}
	if cb.now().UnixNano() < cb.openUntil.Load() {
		return false
	}
	if cb.state.CompareAndSwap(int32(CircuitOpen), int32(CircuitClosed)) {
		cb.failures.Store(0)
	}
	return true
}

// RecordSuccess resets the failure streak and closes the circuit.
func (cb *CircuitBreaker) RecordSuccess() {
	cb.failures.Store(0)
	cb.state.Store(int32(CircuitClosed))
}

// RecordFailure extends the failure streak and opens the circuit once the
// streak reaches the threshold. It returns the streak length.
func (cb *CircuitBreaker) RecordFailure() int64 {
	n := cb.failures.Add(1)
	if n >= cb.maxFailures {
		cb.openUntil.Store(cb.now().Add(cb.openFor).UnixNano())
		cb.state.Store(int32(CircuitOpen))
	}
	return n
}

// State returns the current state without triggering a transition.
func (cb *CircuitBreaker) State() CircuitState {
	return CircuitState(cb.state.Load())
}

// Failures returns the current consecutive failure count.
func (cb *CircuitBreaker) Failures() int64 {
	return cb.failures.Load()
}
