package qharness

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// newTestWorker builds a worker attached to a bare pool, without starting
// any goroutines.
func newTestWorker(backend Backend, breaker bool) *Worker {
	pool := &Pool{
		jobs:     make(chan Job, 1),
		space:    NewSpace(time.Minute),
		metrics:  NewMetrics(),
		logger:   quietLogger(),
		config:   NewConfig(),
		breakers: make(map[CircuitID]*CircuitBreaker),
	}
	if breaker {
		pool.breakerCfg = &CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Minute, HalfOpenMax: 1}
	}

	return &Worker{
		pool:   pool,
		runner: NewRunner(backend, WithLogger(quietLogger()), WithMetrics(pool.metrics)),
		logger: quietLogger(),
	}
}

func testJob(id string, attempts int) Job {
	return Job{
		ID:     id,
		Config: ExperimentConfig{Circuit: CircuitBell, Assignment: phiPlus, Trials: 3},
		RetryPolicy: &RetryPolicy{
			MaxAttempts: attempts,
			Strategy:    &ExponentialBackoff{Initial: time.Millisecond},
		},
		TTL:       time.Minute,
		StartTime: time.Now(),
	}
}

func TestWorker(t *testing.T) {
	Convey("Given a worker", t, func() {
		ctx := context.Background()

		Convey("It should process a job successfully", func() {
			worker := newTestWorker(newMockBackend(correlated), false)
			Reset(worker.pool.space.Close)

			summary, err := worker.processJob(ctx, testJob("job_success", 1))
			So(err, ShouldBeNil)
			So(summary.Trials, ShouldEqual, 3)
			So(summary.Agreements, ShouldEqual, 3)
		})

		Convey("It should retry an experiment after a backend failure", func() {
			backend := newMockBackend(correlated)
			backend.failMeasure = errMockBackend
			backend.failAtTrial = 0
			worker := newTestWorker(backend, false)
			Reset(worker.pool.space.Close)

			summary, err := worker.processJob(ctx, testJob("job_retry", 3))
			So(err, ShouldBeNil)
			So(summary.Trials, ShouldEqual, 3)
			So(worker.pool.metrics.FailedExperiments, ShouldEqual, 1)
			So(worker.pool.metrics.ExperimentCount, ShouldEqual, 2)
		})

		Convey("It should give up after the last attempt", func() {
			backend := newMockBackend(correlated)
			backend.failMeasure = errMockBackend
			worker := newTestWorker(backend, false)
			Reset(worker.pool.space.Close)

			_, err := worker.processJob(ctx, testJob("job_failing", 3))
			So(errors.Is(err, ErrBackendFailure), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "after 3 attempts")
			So(worker.pool.metrics.ExperimentCount, ShouldEqual, 3)
		})

		Convey("It should never retry a configuration error", func() {
			worker := newTestWorker(newMockBackend(correlated), false)
			Reset(worker.pool.space.Close)

			job := testJob("job_invalid", 5)
			job.Config.Trials = 0

			_, err := worker.processJob(ctx, job)
			So(errors.Is(err, ErrInvalidConfiguration), ShouldBeTrue)
			So(err.Error(), ShouldNotContainSubstring, "attempts")
			So(worker.pool.metrics.ExperimentCount, ShouldEqual, 1)
		})

		Convey("It should open the circuit's breaker after repeated backend failures", func() {
			backend := newMockBackend(correlated)
			backend.failMeasure = errMockBackend
			worker := newTestWorker(backend, true)
			Reset(worker.pool.space.Close)

			_, err := worker.processJob(ctx, testJob("first", 2))
			So(err, ShouldNotBeNil)
			So(worker.pool.Breaker(CircuitBell).State(), ShouldEqual, CircuitOpen)

			_, err = worker.processJob(ctx, testJob("second", 1))
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "circuit breaker open")
			So(worker.pool.metrics.ExperimentCount, ShouldEqual, 2)
		})

		Convey("It should stop waiting to retry when the context ends", func() {
			backend := newMockBackend(correlated)
			backend.failMeasure = errMockBackend
			worker := newTestWorker(backend, false)
			Reset(worker.pool.space.Close)

			job := testJob("job_cancelled", 3)
			job.RetryPolicy.Strategy = &ExponentialBackoff{Initial: time.Hour}

			cancelled, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
			defer cancel()

			_, err := worker.processJob(cancelled, job)
			So(errors.Is(err, ErrAborted), ShouldBeTrue)
		})

		Convey("It should store results for queued jobs", func() {
			worker := newTestWorker(newMockBackend(correlated), false)
			Reset(worker.pool.space.Close)

			runCtx, stop := context.WithCancel(ctx)
			done := make(chan error, 1)
			go func() { done <- worker.run(runCtx) }()

			result := worker.pool.space.Await("queued")
			worker.pool.jobs <- testJob("queued", 1)

			got := awaitResult(result)
			So(got.Error, ShouldBeNil)
			So(got.Summary.Trials, ShouldEqual, 3)

			stop()
			So(<-done, ShouldBeNil)
		})
	})
}
