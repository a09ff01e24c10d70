package qharness

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	. "github.com/smartystreets/goconvey/convey"
)

func bellReduction() Reduction {
	return Reduction{
		Circuit:  CircuitBell,
		Family:   FamilyEntanglement,
		Observed: 2,
		Rule:     AgreementRule{First: 0, Second: 1},
	}
}

// results builds n trial results for circuit from law.
func results(circuit CircuitID, n, width int, law func(trial int, q Qubit) Outcome) []TrialResult {
	out := make([]TrialResult, n)
	for i := range out {
		outcomes := make([]Outcome, width)
		for q := range outcomes {
			outcomes[q] = law(i, Qubit(q))
		}
		out[i] = TrialResult{Circuit: circuit, Trial: i, Outcomes: outcomes}
	}
	return out
}

func TestAggregateCounting(t *testing.T) {
	Convey("Given trial streams of every length", t, func() {
		mixed := func(trial int, q Qubit) Outcome {
			return Outcome((trial*7 + int(q)*3) % 5 % 2)
		}

		Convey("Each qubit's tallies sum to the trial count", func() {
			for _, n := range []int{1, 2, 3, 10, 99, 1000} {
				summary, err := Aggregate(bellReduction(), results(CircuitBell, n, 2, mixed))
				So(err, ShouldBeNil)
				So(summary.Trials, ShouldEqual, n)
				So(summary.Counts, ShouldHaveLength, 2)
				for _, tally := range summary.Counts {
					So(tally.Total(), ShouldEqual, n)
				}
				So(summary.Agreements, ShouldBeBetweenOrEqual, 0, n)
			}
		})

		Convey("A counting rule only tallies", func() {
			reduction := Reduction{Circuit: CircuitBell, Observed: 2, Rule: CountingRule{}}
			summary, err := Aggregate(reduction, results(CircuitBell, 4, 2, always(One)))
			So(err, ShouldBeNil)
			So(summary.Counts, ShouldResemble, []Tally{{Zero: 0, One: 4}, {Zero: 0, One: 4}})
			So(summary.Agreements, ShouldEqual, 0)
			So(summary.Verdict, ShouldEqual, VerdictNone)
		})
	})
}

func TestAggregateAgreement(t *testing.T) {
	Convey("Given a perfectly correlated stream", t, func() {
		Convey("Agreement equals the trial count for every N", func() {
			for _, n := range []int{1, 5, 64, 1000} {
				summary, err := Aggregate(bellReduction(), results(CircuitBell, n, 2, correlated))
				So(err, ShouldBeNil)
				So(summary.Agreements, ShouldEqual, n)
				So(summary.AgreementRate(), ShouldEqual, 1.0)
			}
		})
	})

	Convey("Given a perfectly anti-correlated stream", t, func() {
		Convey("Agreement is zero for every N", func() {
			for _, n := range []int{1, 5, 64, 1000} {
				summary, err := Aggregate(bellReduction(), results(CircuitBell, n, 2, anticorrelated))
				So(err, ShouldBeNil)
				So(summary.Agreements, ShouldEqual, 0)
				So(summary.Counts[0].Total(), ShouldEqual, n)
			}
		})
	})
}

func TestAggregateFidelity(t *testing.T) {
	Convey("Given teleportation results", t, func() {
		reduction := Reduction{
			Circuit:  CircuitTeleportation,
			Family:   FamilyTeleportation,
			Observed: 1,
			Rule:     FidelityRule{Qubit: 0, Expected: One},
		}

		Convey("Matches against the sent state are counted", func() {
			stream := results(CircuitTeleportation, 10, 1, func(trial int, _ Qubit) Outcome {
				if trial < 7 {
					return One
				}
				return Zero
			})

			summary, err := Aggregate(reduction, stream)
			So(err, ShouldBeNil)
			So(summary.Agreements, ShouldEqual, 7)
			So(summary.Counts[0], ShouldResemble, Tally{Zero: 3, One: 7})
		})
	})
}

func TestAggregateClassification(t *testing.T) {
	Convey("Given an oracle classifier reduction", t, func() {
		reduction := Reduction{
			Circuit:     CircuitDeutschJozsa,
			Family:      FamilyOracle,
			Observed:    3,
			Rule:        ClassificationRule{InputQubits: 3},
			InputQubits: 3,
		}

		Convey("The constant law is Constant for every N", func() {
			for _, n := range []int{1, 2, 17, 500} {
				summary, err := Aggregate(reduction, results(CircuitDeutschJozsa, n, 3, always(Zero)))
				So(err, ShouldBeNil)
				So(summary.Verdict, ShouldEqual, Constant)
				So(summary.BalancedVotes, ShouldEqual, 0)
				So(summary.InputQubits, ShouldEqual, 3)
			}
		})

		Convey("The balanced law is Balanced for every N", func() {
			oneHot := func(trial int, q Qubit) Outcome {
				if int(q) == trial%3 {
					return One
				}
				return Zero
			}
			for _, n := range []int{1, 2, 17, 500} {
				summary, err := Aggregate(reduction, results(CircuitDeutschJozsa, n, 3, oneHot))
				So(err, ShouldBeNil)
				So(summary.Verdict, ShouldEqual, Balanced)
				So(summary.BalancedVotes, ShouldEqual, n)
			}
		})

		Convey("A noisy stream follows the majority", func() {
			noisy := func(trial int, q Qubit) Outcome {
				if trial == 0 && q == 0 {
					return One
				}
				return Zero
			}
			summary, err := Aggregate(reduction, results(CircuitDeutschJozsa, 9, 3, noisy))
			So(err, ShouldBeNil)
			So(summary.BalancedVotes, ShouldEqual, 1)
			So(summary.Verdict, ShouldEqual, Constant)
		})

		Convey("A tie resolves to Balanced", func() {
			split := func(trial int, q Qubit) Outcome {
				return Outcome(trial % 2)
			}
			summary, err := Aggregate(reduction, results(CircuitDeutschJozsa, 4, 3, split))
			So(err, ShouldBeNil)
			So(summary.BalancedVotes, ShouldEqual, 2)
			So(summary.Verdict, ShouldEqual, Balanced)
		})
	})
}

func TestAggregateErrors(t *testing.T) {
	Convey("Given a bad result stream", t, func() {
		Convey("An empty stream is insufficient data", func() {
			_, err := Aggregate(bellReduction(), nil)
			So(errors.Is(err, ErrInsufficientData), ShouldBeTrue)
		})

		Convey("A result from another circuit is malformed", func() {
			stream := results(CircuitBell, 3, 2, correlated)
			stream[1].Circuit = CircuitTeleportation

			summary, err := Aggregate(bellReduction(), stream)
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
			So(summary.Trials, ShouldEqual, 0)

			var experimentErr *ExperimentError
			So(errors.As(err, &experimentErr), ShouldBeTrue)
			So(experimentErr.Trial, ShouldEqual, 1)
		})

		Convey("A result with the wrong number of outcomes is malformed", func() {
			stream := results(CircuitBell, 3, 1, correlated)
			_, err := Aggregate(bellReduction(), stream)
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
		})

		Convey("An invalid outcome is malformed", func() {
			stream := results(CircuitBell, 2, 2, correlated)
			stream[0].Outcomes[1] = Outcome(9)
			_, err := Aggregate(bellReduction(), stream)
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
		})

		Convey("A rule pointing outside the observed qubits is malformed", func() {
			reduction := bellReduction()
			reduction.Rule = AgreementRule{First: 0, Second: 2}
			_, err := Aggregate(reduction, results(CircuitBell, 2, 2, correlated))
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)

			reduction.Rule = nil
			_, err = Aggregate(reduction, results(CircuitBell, 2, 2, correlated))
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
		})
	})
}

func TestAggregateEndToEnd(t *testing.T) {
	Convey("Given the Bell circuit on an ideally correlated mock backend", t, func() {
		runner := NewRunner(newMockBackend(correlated))

		Convey("1000 trials from (Zero, Zero) agree every time", func() {
			summary, err := runner.Run(testContext(), ExperimentConfig{
				Circuit:    CircuitBell,
				Assignment: phiPlus,
				Trials:     1000,
			})
			So(err, ShouldBeNil)
			So(summary.Counts[0].Total(), ShouldEqual, 1000)
			So(summary.Counts[1].Total(), ShouldEqual, 1000)
			So(summary.Agreements, ShouldEqual, 1000)
			So(summary.Rule, ShouldResemble, AgreementRule{First: 0, Second: 1})
			Printf("%s", spew.Sdump(summary))
		})
	})

	Convey("Given Deutsch's circuit on mock oracle laws", t, func() {
		Convey("The identity oracle's law classifies as Balanced", func() {
			runner := NewRunner(newMockBackend(always(One)))
			summary, err := runner.Run(testContext(), ExperimentConfig{
				Circuit:    CircuitDeutsch,
				Assignment: Assignment{Oracle: OracleOddParity},
				Trials:     1,
			})
			So(err, ShouldBeNil)
			So(summary.Verdict, ShouldEqual, Balanced)
			So(summary.InputQubits, ShouldEqual, 1)
		})

		Convey("The constant-zero oracle's law classifies as Constant", func() {
			runner := NewRunner(newMockBackend(always(Zero)))
			summary, err := runner.Run(testContext(), ExperimentConfig{
				Circuit:    CircuitDeutsch,
				Assignment: Assignment{Oracle: OracleConstantZero},
				Trials:     25,
			})
			So(err, ShouldBeNil)
			So(summary.Verdict, ShouldEqual, Constant)
		})
	})
}
