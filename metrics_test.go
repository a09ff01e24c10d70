package qharness

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetrics(t *testing.T) {
	Convey("Given in-process metrics", t, func() {
		metrics := NewMetrics()

		Convey("Trial latencies feed the percentiles", func() {
			for i := 1; i <= 100; i++ {
				metrics.recordTrial(CircuitBell, time.Duration(i)*time.Millisecond, nil)
			}
			So(metrics.TrialCount, ShouldEqual, 100)
			So(metrics.AverageTrialLatency, ShouldEqual, 50500*time.Microsecond)
			So(metrics.P95TrialLatency, ShouldEqual, 96*time.Millisecond)
			So(metrics.P99TrialLatency, ShouldEqual, 100*time.Millisecond)
		})

		Convey("The export is a loggable snapshot", func() {
			metrics.recordExperiment(CircuitBell, ErrBackendFailure)
			metrics.recordThrottle()

			export := metrics.ExportMetrics()
			So(export["failed_experiments"], ShouldEqual, int64(1))
			So(export["throttled_trials"], ShouldEqual, int64(1))
		})

		Convey("A nil metrics value ignores observations", func() {
			var none *Metrics
			So(func() {
				none.recordTrial(CircuitBell, time.Millisecond, nil)
				none.recordExperiment(CircuitBell, nil)
				none.recordThrottle()
			}, ShouldNotPanic)
		})
	})

	Convey("Given Prometheus metrics", t, func() {
		reg := prometheus.NewRegistry()
		metrics := NewPrometheusMetrics(reg)
		runner := NewRunner(newMockBackend(correlated), WithLogger(quietLogger()), WithMetrics(metrics))

		Convey("Trials and experiments are exported per circuit", func() {
			_, err := runner.RunExperiment(testContext(), ExperimentConfig{
				Circuit: CircuitBell, Assignment: phiPlus, Trials: 7,
			})
			So(err, ShouldBeNil)

			So(testutil.ToFloat64(metrics.trialsTotal.WithLabelValues("bell", "success")), ShouldEqual, 7)
			So(testutil.ToFloat64(metrics.experimentsTotal.WithLabelValues("bell", "success")), ShouldEqual, 1)
			So(testutil.CollectAndCount(metrics.trialDuration), ShouldEqual, 1)
		})

		Convey("Collectors live under the harness namespace", func() {
			metrics.recordThrottle()
			families, err := reg.Gather()
			So(err, ShouldBeNil)

			names := make([]string, 0, len(families))
			for _, family := range families {
				names = append(names, family.GetName())
			}
			So(names, ShouldContain, "qharness_throttled_trials_total")
		})
	})
}
