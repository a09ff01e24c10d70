package qharness

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/theapemachine/errnie"
	"golang.org/x/sync/errgroup"
)

// ErrPoolClosed is returned for experiments scheduled on, or still queued in,
// a closed pool.
var ErrPoolClosed = errors.New("pool closed")

/*
Pool runs independent experiments in parallel. Every worker owns its own
backend, built by the pool's BackendFactory, so experiments never share
quantum state; inside one experiment trials stay sequential on that
worker's backend.
*/
type Pool struct {
	ctx        context.Context
	cancel     context.CancelFunc
	group      *errgroup.Group
	jobs       chan Job
	space      *Space
	metrics    *Metrics
	logger     *log.Logger
	config     *Config
	workers    []*Worker
	breakerCfg *CircuitBreakerConfig
	pressure   Regulator
	breakers   map[CircuitID]*CircuitBreaker
	breakersMu sync.Mutex
	sendMu     sync.RWMutex
	closed     bool
	closeOnce  sync.Once
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

func WithPoolLogger(logger *log.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

func WithPoolMetrics(metrics *Metrics) PoolOption {
	return func(p *Pool) {
		p.metrics = metrics
	}
}

// WithBreaker guards every circuit id with its own CircuitBreaker.
func WithBreaker(maxFailures int, resetTimeout time.Duration, halfOpenMax int) PoolOption {
	return func(p *Pool) {
		p.breakerCfg = &CircuitBreakerConfig{
			MaxFailures:  maxFailures,
			ResetTimeout: resetTimeout,
			HalfOpenMax:  halfOpenMax,
		}
	}
}

// WithBackPressure holds Schedule back while the queue holds maxQueueDepth
// experiments or trials run slower than targetLatency.
func WithBackPressure(maxQueueDepth int, targetLatency time.Duration) PoolOption {
	return func(p *Pool) {
		p.pressure = NewBackPressureRegulator(maxQueueDepth, targetLatency)
	}
}

// NewPool starts config.Workers workers, each with a backend from factory.
func NewPool(ctx context.Context, config *Config, factory BackendFactory, opts ...PoolOption) (*Pool, error) {
	if config == nil {
		config = NewConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	group, gctx := errgroup.WithContext(ctx)

	p := &Pool{
		ctx:      gctx,
		cancel:   cancel,
		group:    group,
		jobs:     make(chan Job, config.Workers*10),
		space:    NewSpace(time.Minute),
		metrics:  NewMetrics(),
		logger:   log.Default(),
		config:   config,
		breakers: make(map[CircuitID]*CircuitBreaker),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.pressure != nil {
		p.pressure.Observe(p.metrics)
	}

	for i := 0; i < config.Workers; i++ {
		if err := p.startWorker(i, factory); err != nil {
			p.Close()
			return nil, err
		}
	}

	errnie.Info("NewPool - workers %d", config.Workers)
	return p, nil
}

func (p *Pool) startWorker(id int, factory BackendFactory) error {
	backend, err := factory(id)
	if err != nil {
		return fmt.Errorf("%w: worker %d backend: %v", ErrBackendFailure, id, err)
	}

	logger := p.logger.With("worker", id)
	runnerOpts := []RunnerOption{WithLogger(logger), WithMetrics(p.metrics)}
	if regulator := p.config.Regulator(); regulator != nil {
		runnerOpts = append(runnerOpts, WithRegulator(regulator, time.Millisecond))
	}

	worker := &Worker{
		id:     id,
		pool:   p,
		runner: NewRunner(backend, runnerOpts...),
		logger: logger,
	}
	p.workers = append(p.workers, worker)

	p.group.Go(func() error {
		return worker.run(p.ctx)
	})
	logger.Debug("started worker")
	return nil
}

/*
Schedule queues an experiment under id and returns a channel that receives
its Result. The default policy runs the experiment once; WithRetry allows
reruns after backend failures.
*/
func (p *Pool) Schedule(id string, cfg ExperimentConfig, opts ...JobOption) chan Result {
	job := Job{
		ID:     id,
		Config: cfg,
		RetryPolicy: &RetryPolicy{
			MaxAttempts: p.config.RetryAttempts,
			Strategy:    &ExponentialBackoff{Initial: p.config.RetryBackoff},
			Filter:      Retryable,
		},
		TTL:       p.config.ResultTTL,
		StartTime: time.Now(),
	}
	for _, opt := range opts {
		opt(&job)
	}
	if job.RetryPolicy.MaxAttempts < 1 {
		job.RetryPolicy.MaxAttempts = 1
	}

	if breaker := p.breaker(cfg.Circuit); breaker != nil {
		breaker.Renormalize()
		if breaker.Limit() {
			return resolved(id, fmt.Errorf("circuit breaker %s is open", cfg.Circuit))
		}
	}

	if p.ctx.Err() != nil {
		return resolved(id, ErrPoolClosed)
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.config.SchedulingTimeout)
	defer cancel()

	result, ok := p.space.Claim(id)
	if !ok {
		return resolved(id, fmt.Errorf("%w: experiment %s is already scheduled", ErrInvalidConfiguration, id))
	}
	if err := p.admit(ctx); err != nil {
		p.space.Store(id, AggregateSummary{}, p.schedulingError("backpressure: ", err), job.TTL)
		return result
	}

	// Close drains the queue under the write lock, so a job sent under the
	// read lock is either drained or picked up by a worker.
	p.sendMu.RLock()
	defer p.sendMu.RUnlock()
	if p.closed {
		p.space.Store(id, AggregateSummary{}, ErrPoolClosed, job.TTL)
		return result
	}

	p.metrics.recordQueued(1)
	select {
	case p.jobs <- job:
		return result
	case <-ctx.Done():
		p.metrics.recordQueued(-1)
		p.space.Store(id, AggregateSummary{}, p.schedulingError("", ctx.Err()), job.TTL)
		return result
	}
}

// admit waits until the back pressure regulator lets a new experiment in.
func (p *Pool) admit(ctx context.Context) error {
	if p.pressure == nil {
		return nil
	}
	for p.pressure.Limit() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
		p.pressure.Renormalize()
	}
	return nil
}

func (p *Pool) schedulingError(prefix string, err error) error {
	if p.ctx.Err() != nil {
		return ErrPoolClosed
	}
	return fmt.Errorf("%sjob scheduling timeout: %w", prefix, err)
}

// RunAll schedules every experiment and waits for all of them. Summaries
// come back in the order of cfgs; the first failure is returned.
func (p *Pool) RunAll(cfgs []ExperimentConfig, opts ...JobOption) ([]AggregateSummary, error) {
	channels := make([]chan Result, len(cfgs))
	for i, cfg := range cfgs {
		channels[i] = p.Schedule(fmt.Sprintf("%s-%d-%d", cfg.Circuit, i, time.Now().UnixNano()), cfg, opts...)
	}

	summaries := make([]AggregateSummary, len(cfgs))
	var firstErr error
	for i, ch := range channels {
		result := <-ch
		if result.Error != nil && firstErr == nil {
			firstErr = result.Error
		}
		summaries[i] = result.Summary
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return summaries, nil
}

// Metrics returns the metrics shared by every worker.
func (p *Pool) Metrics() *Metrics {
	return p.metrics
}

// Breaker returns the breaker guarding circuit, or nil when the pool has no
// breakers configured.
func (p *Pool) Breaker(circuit CircuitID) *CircuitBreaker {
	return p.breaker(circuit)
}

func (p *Pool) breaker(circuit CircuitID) *CircuitBreaker {
	if p.breakerCfg == nil {
		return nil
	}

	p.breakersMu.Lock()
	defer p.breakersMu.Unlock()

	breaker, exists := p.breakers[circuit]
	if !exists {
		breaker = NewCircuitBreaker(
			p.breakerCfg.MaxFailures,
			p.breakerCfg.ResetTimeout,
			p.breakerCfg.HalfOpenMax,
		)
		breaker.Observe(p.metrics)
		p.breakers[circuit] = breaker
	}
	return breaker
}

// Close stops the workers and fails every experiment still queued.
func (p *Pool) Close() {
	if p == nil {
		return
	}

	p.closeOnce.Do(func() {
		p.logger.Debug("closing pool")
		p.cancel()
		if err := p.group.Wait(); err != nil {
			p.logger.Error("worker exited with error", "err", err)
		}

		p.sendMu.Lock()
		defer p.sendMu.Unlock()
		p.closed = true

		for {
			select {
			case job := <-p.jobs:
				p.metrics.recordQueued(-1)
				p.space.Store(job.ID, AggregateSummary{}, ErrPoolClosed, job.TTL)
			default:
				p.space.Close()
				p.logger.Debug("pool closed", "metrics", p.metrics.ExportMetrics())
				return
			}
		}
	})
}

func resolved(id string, err error) chan Result {
	ch := make(chan Result, 1)
	ch <- Result{ID: id, Error: err, CreatedAt: time.Now()}
	close(ch)
	return ch
}
