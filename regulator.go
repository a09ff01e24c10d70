package qharness

/*
Regulator gates the start of work against a shared resource. The runner
consults it before every trial, which is how a paid or rate limited hardware
backend is kept within its budget. The pool checks each circuit's breaker
through Limit before queueing an experiment and its back pressure regulator
before every send; workers then admit the experiment with the breaker's
Allow.

Examples of regulators include:
  - RateLimiter: caps how fast trials start
  - CircuitBreaker: stops work after repeated backend failures
*/
type Regulator interface {
	// Observe hands the regulator the metrics it may adapt to.
	Observe(metrics *Metrics)

	// Limit reports whether the next unit of work must wait.
	Limit() bool

	// Renormalize gives the regulator a chance to recover capacity after it
	// limited work.
	Renormalize()
}
