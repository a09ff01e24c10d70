package qharness

import (
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

/*
CircuitState represents the state of the circuit breaker.
*/
type CircuitState int

const (
	CircuitClosed   CircuitState = iota // Normal operation state
	CircuitOpen                         // Failure state, rejecting experiments
	CircuitHalfOpen                     // Probationary state, allowing limited experiments
)

func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	}
	return "unknown"
}

/*
CircuitBreaker implements both the circuit breaker pattern and the Regulator
interface. The pool keeps one per quantum circuit id: when experiments on a
circuit keep failing on the backend, further experiments on it are rejected
until the reset timeout passes, instead of burning backend time on runs that
will be thrown away.

The circuit breaker operates in three states:
  - Closed: all experiments are allowed
  - Open: failure threshold exceeded, experiments are rejected
  - Half-Open: a limited number of experiments probe whether the backend recovered
*/
type CircuitBreaker struct {
	mu               sync.RWMutex
	maxFailures      int           // Maximum failures before opening circuit
	resetTimeout     time.Duration // Time to wait before attempting recovery
	halfOpenMax      int           // Maximum experiments allowed in half-open state
	failureCount     int           // Current count of consecutive failures
	state            CircuitState  // Current state of the circuit breaker
	openTime         time.Time     // Time when circuit was opened
	halfOpenInFlight int           // Experiments admitted in half-open state and not yet finished
	halfOpenSuccess  int           // Successes recorded in half-open state
	metrics          *Metrics
}

func NewCircuitBreaker(maxFailures int, resetTimeout time.Duration, halfOpenMax int) *CircuitBreaker {
	return &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		halfOpenMax:  halfOpenMax,
		state:        CircuitClosed,
	}
}

func (cb *CircuitBreaker) Observe(metrics *Metrics) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.metrics = metrics
}

// Limit reports whether the breaker would refuse an experiment now. Unlike
// Allow it admits nothing.
func (cb *CircuitBreaker) Limit() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()

	switch cb.state {
	case CircuitOpen:
		return time.Since(cb.openTime) <= cb.resetTimeout
	case CircuitHalfOpen:
		return cb.halfOpenInFlight >= cb.halfOpenMax
	}
	return false
}

// Renormalize moves an open breaker to half-open once the reset timeout has
// passed.
func (cb *CircuitBreaker) Renormalize() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.renormalize()
}

// renormalize expects the caller to hold the lock.
func (cb *CircuitBreaker) renormalize() {
	if cb.state == CircuitOpen && time.Since(cb.openTime) > cb.resetTimeout {
		cb.state = CircuitHalfOpen
		cb.halfOpenInFlight = 0
		cb.halfOpenSuccess = 0
		log.Debug("circuit breaker renormalized", "state", cb.state)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failureCount++
	if cb.failureCount < cb.maxFailures && cb.state != CircuitHalfOpen {
		return
	}

	switch cb.state {
	case CircuitHalfOpen:
		cb.state = CircuitOpen
		cb.openTime = time.Now()
		log.Warn("circuit breaker reopened from half-open state")
	case CircuitClosed:
		cb.state = CircuitOpen
		cb.openTime = time.Now()
		log.Warn("circuit breaker opened", "failures", cb.failureCount)
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case CircuitHalfOpen:
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.halfOpenMax {
			cb.state = CircuitClosed
			cb.failureCount = 0
			cb.halfOpenInFlight = 0
			cb.halfOpenSuccess = 0
			log.Info("circuit breaker closed from half-open")
		}
	case CircuitClosed:
		cb.failureCount = 0
	}
}

// Allow admits an experiment if the breaker permits one. In half-open state
// at most halfOpenMax admitted experiments run at once; each must be handed
// back with Finish.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.renormalize()

	switch cb.state {
	case CircuitClosed:
		return true
	case CircuitHalfOpen:
		if cb.halfOpenInFlight >= cb.halfOpenMax {
			return false
		}
		cb.halfOpenInFlight++
		return true
	default:
		return false
	}
}

// Finish hands back an experiment admitted by Allow.
func (cb *CircuitBreaker) Finish() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitHalfOpen && cb.halfOpenInFlight > 0 {
		cb.halfOpenInFlight--
	}
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}
