package qharness

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Worker owns one backend and the runner that drives it. Experiments on
// different workers share nothing.
type Worker struct {
	id     int
	pool   *Pool
	runner *Runner
	logger *log.Logger
}

func (w *Worker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-w.pool.jobs:
			w.pool.metrics.recordQueued(-1)
			summary, err := w.processJob(ctx, job)
			w.pool.space.Store(job.ID, summary, err, job.TTL)
		}
	}
}

func (w *Worker) processJob(ctx context.Context, job Job) (AggregateSummary, error) {
	breaker := w.pool.breaker(job.Config.Circuit)
	if breaker != nil {
		if !breaker.Allow() {
			return AggregateSummary{}, fmt.Errorf("circuit breaker open for %s", job.Config.Circuit)
		}
		defer breaker.Finish()
	}

	summary, err := w.executeWithRetries(ctx, &job, breaker)
	if err != nil {
		return AggregateSummary{}, err
	}

	w.logger.Debug("job finished", "job", job.ID, "elapsed", time.Since(job.StartTime))
	return summary, nil
}

func (w *Worker) executeWithRetries(ctx context.Context, job *Job, breaker *CircuitBreaker) (AggregateSummary, error) {
	policy := job.RetryPolicy
	attempts := 0

	for job.Attempt = 0; job.Attempt < policy.MaxAttempts; job.Attempt++ {
		if job.Attempt > 0 {
			var delay time.Duration
			if policy.Strategy != nil {
				delay = policy.Strategy.NextDelay(job.Attempt)
			}
			w.logger.Info("retrying experiment", "job", job.ID, "attempt", job.Attempt+1, "delay", delay)
			select {
			case <-ctx.Done():
				return AggregateSummary{}, newExperimentError(ErrAborted, job.Config.Circuit, noTrial, ctx.Err())
			case <-time.After(delay):
			}
		}

		attempts++
		summary, err := w.runner.Run(ctx, job.Config)
		if err == nil {
			if breaker != nil {
				breaker.RecordSuccess()
			}
			return summary, nil
		}

		job.LastError = err
		w.logger.Warn("experiment attempt failed", "job", job.ID, "attempt", job.Attempt+1, "err", err)
		if breaker != nil && Retryable(err) {
			breaker.RecordFailure()
		}
		if !policy.allows(err) {
			break
		}
	}

	if attempts > 1 {
		return AggregateSummary{}, fmt.Errorf("job %s failed after %d attempts: %w", job.ID, attempts, job.LastError)
	}
	return AggregateSummary{}, fmt.Errorf("job %s: %w", job.ID, job.LastError)
}
