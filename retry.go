package qharness

import (
	"math"
	"time"
)

/*
RetryPolicy decides whether a failed experiment is run again from scratch.
Trials are never retried individually: a failed trial cannot be told apart
from a corrupted backend, so the only safe unit to repeat is the whole
experiment.
*/
type RetryPolicy struct {
	MaxAttempts int
	Strategy    RetryStrategy
	Filter      func(error) bool
}

// RetryStrategy defines the interface for retry behavior
type RetryStrategy interface {
	NextDelay(attempt int) time.Duration
}

// ExponentialBackoff implements RetryStrategy
type ExponentialBackoff struct {
	Initial time.Duration
}

func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	return eb.Initial * time.Duration(math.Pow(2, float64(attempt-1)))
}

func (p *RetryPolicy) allows(err error) bool {
	if p.Filter == nil {
		return Retryable(err)
	}
	return p.Filter(err)
}

// WithRetry lets a job be rerun after backend failures. Configuration and
// aggregation errors are never retried, whatever the attempt count.
func WithRetry(attempts int, strategy RetryStrategy) JobOption {
	return func(j *Job) {
		j.RetryPolicy = &RetryPolicy{
			MaxAttempts: attempts,
			Strategy:    strategy,
			Filter:      Retryable,
		}
	}
}
