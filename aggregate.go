package qharness

import "fmt"

/*
AggregationRule selects how an experiment's outcomes are reduced beyond the
per-qubit tallies every experiment gets. The set of rules is closed:
CountingRule, AgreementRule, FidelityRule and ClassificationRule.
*/
type AggregationRule interface {
	isAggregationRule()
}

// CountingRule only tallies outcomes.
type CountingRule struct{}

// AgreementRule counts trials where observed qubits First and Second read
// the same outcome. Whether that means correlation or anti-correlation
// depends on the prepared state and is left to the caller.
type AgreementRule struct {
	First  int
	Second int
}

// FidelityRule counts trials where observed qubit Qubit reads Expected, the
// classical description of the state that was sent.
type FidelityRule struct {
	Qubit    int
	Expected Outcome
}

// ClassificationRule turns each trial into a Balanced or Constant vote and
// reports the majority.
type ClassificationRule struct {
	InputQubits int
}

func (CountingRule) isAggregationRule()       {}
func (AgreementRule) isAggregationRule()      {}
func (FidelityRule) isAggregationRule()       {}
func (ClassificationRule) isAggregationRule() {}

// Verdict is the result of classifying an oracle.
type Verdict int

const (
	VerdictNone Verdict = iota
	Constant
	Balanced
)

func (v Verdict) String() string {
	switch v {
	case Constant:
		return "Constant"
	case Balanced:
		return "Balanced"
	}
	return "None"
}

// Tally counts the outcomes of one observed qubit.
type Tally struct {
	Zero int
	One  int
}

func (t Tally) Total() int {
	return t.Zero + t.One
}

// Count returns the tally for o.
func (t Tally) Count(o Outcome) int {
	if o == One {
		return t.One
	}
	return t.Zero
}

func (t *Tally) add(o Outcome) {
	if o == One {
		t.One++
		return
	}
	t.Zero++
}

// Reduction tells the aggregator what the results belong to and how to
// reduce them.
type Reduction struct {
	Circuit     CircuitID
	Family      Family
	Observed    int
	Rule        AggregationRule
	InputQubits int
}

/*
AggregateSummary is the reduced form of an experiment. Every tally totals
Trials. Agreements is filled for agreement and fidelity rules, Verdict and
BalancedVotes for classification.
*/
type AggregateSummary struct {
	Circuit       CircuitID
	Family        Family
	Trials        int
	Counts        []Tally
	Rule          AggregationRule
	Agreements    int
	Verdict       Verdict
	BalancedVotes int
	InputQubits   int
}

// AgreementRate is Agreements as a fraction of Trials.
func (s AggregateSummary) AgreementRate() float64 {
	if s.Trials == 0 {
		return 0
	}
	return float64(s.Agreements) / float64(s.Trials)
}

/*
Aggregate reduces the trial results of one experiment. It fails with
ErrInsufficientData on an empty stream and with ErrMalformedInput when a
result does not belong to the reduction's circuit or carries the wrong number
of outcomes.
*/
func Aggregate(reduction Reduction, results []TrialResult) (AggregateSummary, error) {
	if len(results) == 0 {
		return AggregateSummary{}, newExperimentError(
			ErrInsufficientData, reduction.Circuit, noTrial,
			fmt.Errorf("no trial results to aggregate"),
		)
	}
	if reduction.Observed < 1 {
		return AggregateSummary{}, malformed(reduction, noTrial,
			fmt.Errorf("reduction observes %d qubits", reduction.Observed))
	}
	if err := checkRule(reduction); err != nil {
		return AggregateSummary{}, malformed(reduction, noTrial, err)
	}

	summary := AggregateSummary{
		Circuit: reduction.Circuit,
		Family:  reduction.Family,
		Trials:  len(results),
		Counts:  make([]Tally, reduction.Observed),
		Rule:    reduction.Rule,
	}

	for i, result := range results {
		if err := checkResult(reduction, result); err != nil {
			return AggregateSummary{}, malformed(reduction, i, err)
		}
		for q, outcome := range result.Outcomes {
			summary.Counts[q].add(outcome)
		}

		switch rule := reduction.Rule.(type) {
		case CountingRule:
		case AgreementRule:
			if result.Outcomes[rule.First] == result.Outcomes[rule.Second] {
				summary.Agreements++
			}
		case FidelityRule:
			if result.Outcomes[rule.Qubit] == rule.Expected {
				summary.Agreements++
			}
		case ClassificationRule:
			if signalsBalanced(result.Outcomes) {
				summary.BalancedVotes++
			}
		}
	}

	if rule, ok := reduction.Rule.(ClassificationRule); ok {
		summary.InputQubits = rule.InputQubits
		summary.Verdict = Constant
		if 2*summary.BalancedVotes >= summary.Trials {
			summary.Verdict = Balanced
		}
	}

	return summary, nil
}

// signalsBalanced is true when any input qubit left the all-Zero pattern a
// constant oracle produces.
func signalsBalanced(outcomes []Outcome) bool {
	for _, o := range outcomes {
		if o == One {
			return true
		}
	}
	return false
}

func checkRule(reduction Reduction) error {
	inRange := func(q int) bool { return q >= 0 && q < reduction.Observed }

	switch rule := reduction.Rule.(type) {
	case CountingRule, ClassificationRule:
		return nil
	case AgreementRule:
		if !inRange(rule.First) || !inRange(rule.Second) || rule.First == rule.Second {
			return fmt.Errorf("agreement pair (%d, %d) invalid for %d observed qubits",
				rule.First, rule.Second, reduction.Observed)
		}
		return nil
	case FidelityRule:
		if !inRange(rule.Qubit) {
			return fmt.Errorf("fidelity qubit %d out of range for %d observed qubits",
				rule.Qubit, reduction.Observed)
		}
		if !rule.Expected.Valid() {
			return fmt.Errorf("fidelity expects invalid outcome %d", int(rule.Expected))
		}
		return nil
	case nil:
		return fmt.Errorf("no aggregation rule")
	default:
		return fmt.Errorf("unknown aggregation rule %T", rule)
	}
}

func checkResult(reduction Reduction, result TrialResult) error {
	if result.Circuit != reduction.Circuit {
		return fmt.Errorf("result from circuit %q", result.Circuit)
	}
	if len(result.Outcomes) != reduction.Observed {
		return fmt.Errorf("result has %d outcomes, want %d", len(result.Outcomes), reduction.Observed)
	}
	for q, o := range result.Outcomes {
		if !o.Valid() {
			return fmt.Errorf("qubit %d has invalid outcome %d", q, int(o))
		}
	}
	return nil
}

func malformed(reduction Reduction, trial int, err error) error {
	return newExperimentError(ErrMalformedInput, reduction.Circuit, trial, err)
}
