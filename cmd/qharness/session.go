package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/theapemachine/qharness"
)

// session is everything a command needs to run experiments: the merged
// configuration, a logger, metrics and, when asked for, traced backends.
type session struct {
	cfg     *qharness.Config
	logger  *log.Logger
	metrics *qharness.Metrics
	server  *http.Server

	mu     sync.Mutex
	traces []*qharness.TraceBackend
}

func newSession(cmd *cobra.Command) (*session, error) {
	cfg, err := qharness.LoadConfig(rootFlags.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("trials") {
		cfg.Trials = rootFlags.trials
	}
	if flags.Changed("seed") {
		cfg.Seed = rootFlags.seed
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = rootFlags.logLevel
	}
	if flags.Changed("trace") {
		cfg.TraceFile = rootFlags.tracePath
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = rootFlags.metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := qharness.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg, logger: logger, metrics: qharness.NewMetrics()}
	if cfg.MetricsAddr != "" {
		if err := s.serveMetrics(cfg.MetricsAddr); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *session) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	s.metrics = qharness.NewPrometheusMetrics(reg)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	s.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped", "err", err)
		}
	}()
	s.logger.Info("serving metrics", "addr", listener.Addr().String())
	return nil
}

// factory builds backends for runners and pool workers, wrapping each in a
// TraceBackend when a trace file is configured.
func (s *session) factory() qharness.BackendFactory {
	simulators := s.cfg.SimulatorFactory()
	return func(worker int) (qharness.Backend, error) {
		backend, err := simulators(worker)
		if err != nil || s.cfg.TraceFile == "" {
			return backend, err
		}

		trace := qharness.NewTraceBackend(backend)
		s.mu.Lock()
		s.traces = append(s.traces, trace)
		s.mu.Unlock()
		return trace, nil
	}
}

// runner returns a single runner for the sequential commands.
func (s *session) runner() (*qharness.Runner, error) {
	backend, err := s.factory()(0)
	if err != nil {
		return nil, err
	}

	opts := []qharness.RunnerOption{
		qharness.WithLogger(s.logger),
		qharness.WithMetrics(s.metrics),
	}
	if regulator := s.cfg.Regulator(); regulator != nil {
		opts = append(opts, qharness.WithRegulator(regulator, time.Millisecond))
	}
	return qharness.NewRunner(backend, opts...), nil
}

// close writes the trace file and stops the metrics server.
// finish closes the session and reports its error unless *err is already set.
func (s *session) finish(err *error) {
	if cerr := s.close(); *err == nil {
		*err = cerr
	}
}

func (s *session) close() error {
	s.logger.Debug("session finished", "metrics", s.metrics.ExportMetrics())
	if s.server != nil {
		_ = s.server.Close()
	}
	if s.cfg.TraceFile == "" {
		return nil
	}

	s.mu.Lock()
	var counters qharness.TraceCounters
	for _, trace := range s.traces {
		counters = counters.Add(trace.Counters())
	}
	s.mu.Unlock()

	f, err := os.Create(s.cfg.TraceFile)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	if err := counters.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write trace: %w", err)
	}
	return f.Close()
}
