package qharness

import (
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCircuitBreakerInterface(t *testing.T) {
	Convey("Given a circuit breaker implementing Regulator interface", t, func() {
		breaker := NewCircuitBreaker(2, 100*time.Millisecond, 1)

		Convey("It should implement Regulator interface", func() {
			var _ Regulator = breaker

			breaker.Observe(NewMetrics())
			So(breaker.Limit(), ShouldBeFalse)
			So(breaker.State(), ShouldEqual, CircuitClosed)
		})
	})
}

func TestCircuitBreakerFailureThreshold(t *testing.T) {
	Convey("Given a circuit breaker with failure threshold", t, func() {
		breaker := NewCircuitBreaker(2, 50*time.Millisecond, 1)

		Convey("A single failure leaves it closed", func() {
			breaker.RecordFailure()
			So(breaker.Allow(), ShouldBeTrue)
		})

		Convey("A success resets the failure count", func() {
			breaker.RecordFailure()
			breaker.RecordSuccess()
			breaker.RecordFailure()
			So(breaker.State(), ShouldEqual, CircuitClosed)
		})

		Convey("It should open after max failures", func() {
			breaker.RecordFailure()
			breaker.RecordFailure()

			So(breaker.Limit(), ShouldBeTrue)
			So(breaker.Allow(), ShouldBeFalse)
			So(breaker.State(), ShouldEqual, CircuitOpen)

			Convey("And go half-open after the reset timeout", func() {
				time.Sleep(75 * time.Millisecond)

				So(breaker.Allow(), ShouldBeTrue)
				So(breaker.State(), ShouldEqual, CircuitHalfOpen)

				Convey("A success in half-open closes it", func() {
					breaker.RecordSuccess()
					So(breaker.State(), ShouldEqual, CircuitClosed)
				})

				Convey("Only one experiment runs while half-open", func() {
					So(breaker.Allow(), ShouldBeFalse)
					So(breaker.Limit(), ShouldBeTrue)

					breaker.Finish()
					So(breaker.Limit(), ShouldBeFalse)
					So(breaker.Allow(), ShouldBeTrue)
				})

				Convey("A failure in half-open reopens it", func() {
					breaker.RecordFailure()
					So(breaker.State(), ShouldEqual, CircuitOpen)
					So(breaker.Allow(), ShouldBeFalse)
				})
			})

			Convey("Renormalize moves it to half-open once the timeout passed", func() {
				breaker.Renormalize()
				So(breaker.State(), ShouldEqual, CircuitOpen)

				time.Sleep(75 * time.Millisecond)
				breaker.Renormalize()
				So(breaker.State(), ShouldEqual, CircuitHalfOpen)
			})
		})
	})
}

func TestCircuitStateString(t *testing.T) {
	Convey("Breaker states have readable names", t, func() {
		So(CircuitClosed.String(), ShouldEqual, "closed")
		So(CircuitOpen.String(), ShouldEqual, "open")
		So(CircuitHalfOpen.String(), ShouldEqual, "half-open")
	})
}
