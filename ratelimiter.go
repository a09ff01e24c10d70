package qharness

import (
	"sync"
	"time"
)

/*
RateLimiter implements the Regulator interface using a token bucket. Each
trial start consumes a token; tokens come back at a fixed rate, up to the
bucket size, which allows short bursts.

Key features:
  - Smooth rate limiting with burst capacity
  - Configurable token replenishment rate
  - Thread-safe operation
*/
type RateLimiter struct {
	tokens     int           // Current number of available tokens
	maxTokens  int           // Maximum token capacity
	refillRate time.Duration // Time between token replenishments
	lastRefill time.Time     // Last time tokens were added
	mu         sync.Mutex
	metrics    *Metrics
}

/*
NewRateLimiter creates a limiter that starts full.

Example:

	limiter := NewRateLimiter(100, 10*time.Millisecond) // 100 trials/second, bursts of 100
*/
func NewRateLimiter(maxTokens int, refillRate time.Duration) *RateLimiter {
	return &RateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (rl *RateLimiter) Observe(metrics *Metrics) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.metrics = metrics
}

// Limit consumes a token if one is available and reports false; with an
// empty bucket it reports true.
func (rl *RateLimiter) Limit() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens > 0 {
		rl.tokens--
		return false
	}
	return true
}

func (rl *RateLimiter) Renormalize() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
}

// Wait is how long until the next token arrives.
func (rl *RateLimiter) Wait() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if rl.tokens > 0 {
		return 0
	}
	return max(0, rl.refillRate-time.Since(rl.lastRefill))
}

// refill adds one token per whole refillRate elapsed. The caller holds the
// lock.
func (rl *RateLimiter) refill() {
	if rl.refillRate <= 0 {
		rl.tokens = rl.maxTokens
		return
	}

	elapsed := time.Since(rl.lastRefill)
	tokensToAdd := int(elapsed / rl.refillRate)
	if tokensToAdd > 0 {
		rl.tokens = min(rl.maxTokens, rl.tokens+tokensToAdd)
		rl.lastRefill = rl.lastRefill.Add(time.Duration(tokensToAdd) * rl.refillRate)
	}
}
