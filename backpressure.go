package qharness

import (
	"sync"
	"time"
)

// pressureLimit is the pressure at which new experiments are held back.
const pressureLimit = 0.8

/*
BackPressureRegulator implements the Regulator interface to keep the pool's
queue from growing without bound. It looks at how many experiments are
waiting for a worker and how slow trials currently are, similar to how
pressure regulators in plumbing systems limit flow when pressure builds up.

Pressure is the larger of the queue fill (depth over maxQueueDepth) and the
latency ratio (average trial latency over targetLatency), capped at 1.
*/
type BackPressureRegulator struct {
	mu sync.RWMutex

	maxQueueDepth int           // Queue depth that counts as full pressure
	targetLatency time.Duration // Trial latency that counts as full pressure
	pressure      float64       // Last computed pressure (0.0-1.0)
	metrics       *Metrics
}

/*
NewBackPressureRegulator creates a new back pressure regulator.

Example:

	regulator := NewBackPressureRegulator(100, 50*time.Millisecond)
*/
func NewBackPressureRegulator(maxQueueDepth int, targetLatency time.Duration) *BackPressureRegulator {
	return &BackPressureRegulator{
		maxQueueDepth: max(1, maxQueueDepth),
		targetLatency: targetLatency,
	}
}

func (bp *BackPressureRegulator) Observe(metrics *Metrics) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.metrics = metrics
	bp.updatePressure()
}

// Limit recomputes the pressure and reports whether it reached the limit.
func (bp *BackPressureRegulator) Limit() bool {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	bp.updatePressure()
	return bp.pressure >= pressureLimit
}

func (bp *BackPressureRegulator) Renormalize() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.updatePressure()
}

// Pressure returns the last computed pressure.
func (bp *BackPressureRegulator) Pressure() float64 {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return bp.pressure
}

// updatePressure expects the caller to hold the lock.
func (bp *BackPressureRegulator) updatePressure() {
	if bp.metrics == nil {
		bp.pressure = 0
		return
	}

	depth, latency := bp.metrics.load()

	queuePressure := float64(depth) / float64(bp.maxQueueDepth)
	timingPressure := 0.0
	if bp.targetLatency > 0 {
		timingPressure = float64(latency) / float64(bp.targetLatency)
	}

	bp.pressure = min(1.0, max(0.0, queuePressure, timingPressure))
}
