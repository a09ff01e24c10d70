package qharness

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/errnie"
)

// ExperimentConfig is held fixed across every trial of one experiment.
type ExperimentConfig struct {
	Circuit    CircuitID  `yaml:"circuit"`
	Assignment Assignment `yaml:",inline"`
	Trials     int        `yaml:"trials"`
}

func (cfg ExperimentConfig) validate() error {
	if cfg.Trials < 1 {
		return newExperimentError(ErrInvalidConfiguration, cfg.Circuit, noTrial,
			fmt.Errorf("trial count %d, need at least 1", cfg.Trials))
	}
	circuit, err := Lookup(cfg.Circuit)
	if err != nil {
		return newExperimentError(ErrInvalidConfiguration, cfg.Circuit, noTrial, err)
	}
	if err := circuit.Validate(cfg.Assignment); err != nil {
		return newExperimentError(ErrInvalidConfiguration, cfg.Circuit, noTrial, err)
	}
	return nil
}

/*
Runner drives experiments against one backend. It is the only user of that
backend while an experiment runs: trials are executed one after another and
never interleave, because qubit state cannot be shared between trials.
*/
type Runner struct {
	mu        sync.Mutex
	backend   Backend
	logger    *log.Logger
	metrics   *Metrics
	regulator Regulator
	poll      time.Duration
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

func WithLogger(logger *log.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func WithMetrics(metrics *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = metrics
	}
}

// WithRegulator throttles trial starts. poll is how long the runner waits
// before asking a limiting regulator again.
func WithRegulator(regulator Regulator, poll time.Duration) RunnerOption {
	return func(r *Runner) {
		r.regulator = regulator
		r.poll = poll
	}
}

func NewRunner(backend Backend, opts ...RunnerOption) *Runner {
	r := &Runner{
		backend: backend,
		logger:  log.Default(),
		poll:    10 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.regulator != nil {
		r.regulator.Observe(r.metrics)
	}
	errnie.Info("NewRunner - backend %T, regulated %v", backend, r.regulator != nil)
	return r
}

// RunTrial runs a single trial on the runner's backend.
func (r *Runner) RunTrial(ctx context.Context, id CircuitID, a Assignment) (TrialResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trial(ctx, id, a, 0)
}

/*
RunExperiment runs cfg.Trials independent trials in order and returns their
results in trial order. Any failing trial fails the whole experiment, and a
cancelled context stops it between trials; in both cases no results are
returned.
*/
func (r *Runner) RunExperiment(ctx context.Context, cfg ExperimentConfig) ([]TrialResult, error) {
	if err := cfg.validate(); err != nil {
		r.metrics.recordExperiment(cfg.Circuit, err)
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	logger := r.logger.With("circuit", cfg.Circuit, "trials", cfg.Trials)
	logger.Debug("experiment started")
	started := time.Now()

	results := make([]TrialResult, 0, cfg.Trials)
	for i := 0; i < cfg.Trials; i++ {
		if err := r.throttle(ctx); err != nil {
			err = newExperimentError(ErrAborted, cfg.Circuit, i, err)
			r.metrics.recordExperiment(cfg.Circuit, err)
			logger.Warn("experiment aborted", "trial", i, "err", err)
			return nil, err
		}

		result, err := r.trial(ctx, cfg.Circuit, cfg.Assignment, i)
		if err != nil {
			r.metrics.recordExperiment(cfg.Circuit, err)
			logger.Error("experiment failed", "trial", i, "err", err)
			return nil, err
		}
		results = append(results, result)
	}

	r.metrics.recordExperiment(cfg.Circuit, nil)
	logger.Debug("experiment finished", "elapsed", time.Since(started))
	return results, nil
}

// Run executes the experiment and reduces its results with the circuit's
// aggregation rule.
func (r *Runner) Run(ctx context.Context, cfg ExperimentConfig) (AggregateSummary, error) {
	results, err := r.RunExperiment(ctx, cfg)
	if err != nil {
		return AggregateSummary{}, err
	}

	circuit, err := Lookup(cfg.Circuit)
	if err != nil {
		return AggregateSummary{}, err
	}
	return Aggregate(circuit.Reduction(cfg.Assignment), results)
}

func (r *Runner) trial(ctx context.Context, id CircuitID, a Assignment, index int) (TrialResult, error) {
	started := time.Now()
	result, err := runTrial(ctx, r.backend, id, a, index)
	r.metrics.recordTrial(id, time.Since(started), err)
	return result, err
}

func (r *Runner) throttle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.regulator == nil {
		return nil
	}

	for r.regulator.Limit() {
		r.metrics.recordThrottle()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
		}
		r.regulator.Renormalize()
	}
	return nil
}
