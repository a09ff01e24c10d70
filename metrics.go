package qharness

import (
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const MetricsNamespace = "qharness"

/*
Metrics tracks trial and experiment throughput. It always keeps in-process
counters; when built with NewPrometheusMetrics the same observations are also
exported as Prometheus collectors.
*/
type Metrics struct {
	mu sync.RWMutex

	TrialCount        int64
	FailedTrials      int64
	ExperimentCount   int64
	FailedExperiments int64
	ThrottledTrials   int64
	QueueDepth        int64
	TotalTrialTime    time.Duration

	AverageTrialLatency time.Duration
	P95TrialLatency     time.Duration
	P99TrialLatency     time.Duration

	latencyWindow []time.Duration
	windowSize    int

	trialsTotal      *prometheus.CounterVec
	experimentsTotal *prometheus.CounterVec
	throttledTotal   prometheus.Counter
	queueDepth       prometheus.Gauge
	trialDuration    *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return &Metrics{
		latencyWindow: make([]time.Duration, 0, 1000),
		windowSize:    1000,
	}
}

// NewPrometheusMetrics registers the harness collectors with reg.
func NewPrometheusMetrics(reg prometheus.Registerer) *Metrics {
	m := NewMetrics()
	factory := promauto.With(reg)

	m.trialsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "trials_total",
		Help:      "Count of executed trials",
	}, []string{
		"circuit",
		"result",
	})

	m.experimentsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "experiments_total",
		Help:      "Count of finished experiments",
	}, []string{
		"circuit",
		"result",
	})

	m.throttledTotal = factory.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "throttled_trials_total",
		Help:      "Count of trial starts delayed by a regulator",
	})

	m.queueDepth = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "queue_depth",
		Help:      "Experiments waiting for a pool worker",
	})

	m.trialDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Name:      "trial_duration_seconds",
		Help:      "Wall time of a single trial",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
	}, []string{
		"circuit",
	})

	return m
}

func (m *Metrics) recordTrial(circuit CircuitID, duration time.Duration, err error) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := "success"
	if err != nil {
		result = "failure"
		m.FailedTrials++
	}

	m.TrialCount++
	m.TotalTrialTime += duration
	m.updateLatencyPercentiles(duration)

	if m.trialsTotal != nil {
		m.trialsTotal.WithLabelValues(string(circuit), result).Inc()
		m.trialDuration.WithLabelValues(string(circuit)).Observe(duration.Seconds())
	}
}

func (m *Metrics) recordExperiment(circuit CircuitID, err error) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	result := "success"
	if err != nil {
		result = "failure"
		m.FailedExperiments++
	}
	m.ExperimentCount++

	if m.experimentsTotal != nil {
		m.experimentsTotal.WithLabelValues(string(circuit), result).Inc()
	}
}

func (m *Metrics) recordThrottle() {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.ThrottledTrials++
	if m.throttledTotal != nil {
		m.throttledTotal.Inc()
	}
}

// recordQueued moves the queue depth by delta.
func (m *Metrics) recordQueued(delta int64) {
	if m == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.QueueDepth += delta
	if m.queueDepth != nil {
		m.queueDepth.Set(float64(m.QueueDepth))
	}
}

// load is what a back pressure regulator looks at.
func (m *Metrics) load() (depth int64, latency time.Duration) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.QueueDepth, m.AverageTrialLatency
}

// updateLatencyPercentiles expects the caller to hold the lock.
func (m *Metrics) updateLatencyPercentiles(duration time.Duration) {
	m.AverageTrialLatency = m.TotalTrialTime / time.Duration(m.TrialCount)

	m.latencyWindow = append(m.latencyWindow, duration)
	if len(m.latencyWindow) > m.windowSize {
		m.latencyWindow = m.latencyWindow[1:]
	}

	sorted := make([]time.Duration, len(m.latencyWindow))
	copy(sorted, m.latencyWindow)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i] < sorted[j]
	})

	m.P95TrialLatency = sorted[percentileIndex(len(sorted), 0.95)]
	m.P99TrialLatency = sorted[percentileIndex(len(sorted), 0.99)]
}

func percentileIndex(n int, p float64) int {
	return min(int(float64(n)*p), n-1)
}

// ExportMetrics returns a snapshot suitable for logging.
func (m *Metrics) ExportMetrics() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return map[string]interface{}{
		"trials":             m.TrialCount,
		"failed_trials":      m.FailedTrials,
		"experiments":        m.ExperimentCount,
		"failed_experiments": m.FailedExperiments,
		"throttled_trials":   m.ThrottledTrials,
		"queue_depth":        m.QueueDepth,
		"avg_latency_us":     m.AverageTrialLatency.Microseconds(),
		"p95_latency_us":     m.P95TrialLatency.Microseconds(),
		"p99_latency_us":     m.P99TrialLatency.Microseconds(),
	}
}
