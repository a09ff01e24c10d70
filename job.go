package qharness

import "time"

// Job is one experiment queued on the pool.
type Job struct {
	ID          string
	Config      ExperimentConfig
	RetryPolicy *RetryPolicy
	TTL         time.Duration
	Attempt     int
	LastError   error
	StartTime   time.Time
}

// JobOption is a function type for configuring jobs
type JobOption func(*Job)

// WithTTL sets how long the job's result stays in the space.
func WithTTL(ttl time.Duration) JobOption {
	return func(j *Job) {
		j.TTL = ttl
	}
}

// CircuitBreakerConfig configures the per-circuit breakers of a pool.
type CircuitBreakerConfig struct {
	MaxFailures  int
	ResetTimeout time.Duration
	HalfOpenMax  int
}
