package qharness

import (
	"errors"
	"fmt"
	"sort"
)

// CircuitID names a circuit contract.
type CircuitID string

const (
	CircuitBell          CircuitID = "bell"
	CircuitDeutsch       CircuitID = "deutsch"
	CircuitDeutschJozsa  CircuitID = "deutsch-jozsa"
	CircuitTeleportation CircuitID = "teleportation"
)

// DefaultInputQubits is the Deutsch-Jozsa register width used when an
// assignment leaves InputQubits at zero.
const DefaultInputQubits = 3

// Family groups circuits that share a reduction rule.
type Family int

const (
	FamilyEntanglement Family = iota
	FamilyOracle
	FamilyTeleportation
)

func (f Family) String() string {
	switch f {
	case FamilyEntanglement:
		return "entanglement"
	case FamilyOracle:
		return "oracle"
	case FamilyTeleportation:
		return "teleportation"
	}
	return fmt.Sprintf("Family(%d)", int(f))
}

/*
Assignment is the initial configuration of one trial. Qubits holds a
preparation per input qubit for the circuits that take prepared inputs;
Oracle and InputQubits configure the oracle classifiers.
*/
type Assignment struct {
	Qubits      []Preparation `yaml:"qubits,omitempty"`
	Oracle      OracleKind    `yaml:"oracle,omitempty"`
	InputQubits int           `yaml:"inputs,omitempty"`
}

/*
Circuit is the contract for one named circuit: how many qubits it needs,
which inputs it accepts, how many qubits it reports and how its outcomes are
reduced. The gate program itself is opaque to the runner.
*/
type Circuit struct {
	ID          CircuitID
	Family      Family
	Description string

	width    func(Assignment) int
	observed func(Assignment) int
	validate func(Assignment) error
	rule     func(Assignment) AggregationRule
	program  func(Backend, []Qubit, Assignment) ([]Outcome, error)
}

// Width is the number of qubits a trial allocates.
func (c *Circuit) Width(a Assignment) int { return c.width(a) }

// Observed is the number of outcomes a trial reports.
func (c *Circuit) Observed(a Assignment) int { return c.observed(a) }

func (c *Circuit) Validate(a Assignment) error { return c.validate(a) }

func (c *Circuit) Rule(a Assignment) AggregationRule { return c.rule(a) }

// Reduction describes how the results of an experiment on this circuit are
// aggregated.
func (c *Circuit) Reduction(a Assignment) Reduction {
	reduction := Reduction{
		Circuit:  c.ID,
		Family:   c.Family,
		Observed: c.Observed(a),
		Rule:     c.Rule(a),
	}
	if c.Family == FamilyOracle {
		reduction.InputQubits = c.Observed(a)
	}
	return reduction
}

var circuits = map[CircuitID]*Circuit{
	CircuitBell: {
		ID:          CircuitBell,
		Family:      FamilyEntanglement,
		Description: "Bell pair: H on the first qubit, then CNOT with the first as control",
		width:       func(Assignment) int { return 2 },
		observed:    func(Assignment) int { return 2 },
		validate:    validateBell,
		rule:        func(Assignment) AggregationRule { return AgreementRule{First: 0, Second: 1} },
		program:     bellPair,
	},
	CircuitDeutsch: {
		ID:          CircuitDeutsch,
		Family:      FamilyOracle,
		Description: "Deutsch's algorithm over a one input oracle",
		width:       func(Assignment) int { return 2 },
		observed:    func(Assignment) int { return 1 },
		validate:    validateDeutsch,
		rule:        func(Assignment) AggregationRule { return ClassificationRule{InputQubits: 1} },
		program:     deutschJozsa,
	},
	CircuitDeutschJozsa: {
		ID:          CircuitDeutschJozsa,
		Family:      FamilyOracle,
		Description: "Deutsch-Jozsa over an n input oracle",
		width:       func(a Assignment) int { return inputQubits(a) + 1 },
		observed:    inputQubits,
		validate:    validateDeutschJozsa,
		rule: func(a Assignment) AggregationRule {
			return ClassificationRule{InputQubits: inputQubits(a)}
		},
		program: deutschJozsa,
	},
	CircuitTeleportation: {
		ID:          CircuitTeleportation,
		Family:      FamilyTeleportation,
		Description: "Teleport one qubit through a shared Bell pair",
		width:       func(Assignment) int { return 3 },
		observed:    func(Assignment) int { return 1 },
		validate:    validateTeleportation,
		rule: func(a Assignment) AggregationRule {
			return FidelityRule{Qubit: 0, Expected: a.Qubits[0].Value}
		},
		program: teleport,
	},
}

// Lookup returns the contract for id.
func Lookup(id CircuitID) (*Circuit, error) {
	c, ok := circuits[id]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported circuit %q", ErrInvalidConfiguration, id)
	}
	return c, nil
}

// Circuits lists the registered circuit ids in a stable order.
func Circuits() []CircuitID {
	ids := make([]CircuitID, 0, len(circuits))
	for id := range circuits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func inputQubits(a Assignment) int {
	if a.InputQubits == 0 {
		return DefaultInputQubits
	}
	return a.InputQubits
}

func validateBell(a Assignment) error {
	if len(a.Qubits) != 2 {
		return fmt.Errorf("bell takes 2 qubit preparations, got %d", len(a.Qubits))
	}
	for i, p := range a.Qubits {
		if !p.Valid() {
			return fmt.Errorf("qubit %d: invalid preparation %s", i, p)
		}
		if p.Basis != PauliZ {
			return fmt.Errorf("qubit %d: bell inputs are prepared in PauliZ, got %s", i, p.Basis)
		}
	}
	return validateNoOracle(a)
}

func validateDeutsch(a Assignment) error {
	if len(a.Qubits) != 0 {
		return errors.New("deutsch takes no qubit preparations")
	}
	if a.InputQubits != 0 && a.InputQubits != 1 {
		return fmt.Errorf("deutsch has exactly one input qubit, got %d", a.InputQubits)
	}
	return validateOracle(a)
}

func validateDeutschJozsa(a Assignment) error {
	if len(a.Qubits) != 0 {
		return errors.New("deutsch-jozsa takes no qubit preparations")
	}
	if a.InputQubits < 0 {
		return fmt.Errorf("input qubit count %d is negative", a.InputQubits)
	}
	return validateOracle(a)
}

func validateTeleportation(a Assignment) error {
	if len(a.Qubits) != 1 {
		return fmt.Errorf("teleportation takes 1 qubit preparation, got %d", len(a.Qubits))
	}
	if !a.Qubits[0].Valid() {
		return fmt.Errorf("invalid preparation %s", a.Qubits[0])
	}
	return validateNoOracle(a)
}

func validateOracle(a Assignment) error {
	if !a.Oracle.Valid() {
		return fmt.Errorf("oracle %s is not a valid oracle", a.Oracle)
	}
	return nil
}

func validateNoOracle(a Assignment) error {
	if a.Oracle != OracleNone || a.InputQubits != 0 {
		return errors.New("oracle settings given to a circuit without an oracle")
	}
	return nil
}

// bellPair entangles qs[0] and qs[1]. Inputs (Zero,Zero) and (One,Zero) give
// the correlated states phi+ and phi-, the others the anti-correlated psi+ and
// psi-.
func bellPair(backend Backend, qs []Qubit, a Assignment) ([]Outcome, error) {
	for i, p := range a.Qubits {
		if err := prepare(backend, qs[i], p); err != nil {
			return nil, err
		}
	}
	if err := backend.Apply(GateH, qs[0]); err != nil {
		return nil, err
	}
	if err := backend.Apply(GateCNOT, qs[0], qs[1]); err != nil {
		return nil, err
	}
	return measureAll(backend, qs)
}

// deutschJozsa uses every qubit but the last as the input register. The
// input register reads all Zero exactly when the oracle is constant.
func deutschJozsa(backend Backend, qs []Qubit, a Assignment) ([]Outcome, error) {
	inputs, output := qs[:len(qs)-1], qs[len(qs)-1]

	if err := backend.Apply(GateX, output); err != nil {
		return nil, err
	}
	if err := applyAll(backend, GateH, qs); err != nil {
		return nil, err
	}
	if err := a.Oracle.apply(backend, inputs, output); err != nil {
		return nil, err
	}
	if err := applyAll(backend, GateH, inputs); err != nil {
		return nil, err
	}
	return measureAll(backend, inputs)
}

// teleport moves the message in qs[0] to qs[2] using qs[1] and qs[2] as the
// shared pair, then reads the receiver in the basis the message was
// prepared in.
func teleport(backend Backend, qs []Qubit, a Assignment) ([]Outcome, error) {
	message, sender, receiver := qs[0], qs[1], qs[2]
	sent := a.Qubits[0]

	if err := prepare(backend, message, sent); err != nil {
		return nil, err
	}
	if err := backend.Apply(GateH, sender); err != nil {
		return nil, err
	}
	if err := backend.Apply(GateCNOT, sender, receiver); err != nil {
		return nil, err
	}
	if err := backend.Apply(GateCNOT, message, sender); err != nil {
		return nil, err
	}
	if err := backend.Apply(GateH, message); err != nil {
		return nil, err
	}

	phaseBit, err := backend.Measure(message)
	if err != nil {
		return nil, err
	}
	flipBit, err := backend.Measure(sender)
	if err != nil {
		return nil, err
	}
	if flipBit == One {
		if err := backend.Apply(GateX, receiver); err != nil {
			return nil, err
		}
	}
	if phaseBit == One {
		if err := backend.Apply(GateZ, receiver); err != nil {
			return nil, err
		}
	}

	received, err := measureIn(backend, receiver, sent.Basis)
	if err != nil {
		return nil, err
	}
	return []Outcome{received}, nil
}

func measureAll(backend Backend, qs []Qubit) ([]Outcome, error) {
	outcomes := make([]Outcome, len(qs))
	for i, q := range qs {
		outcome, err := backend.Measure(q)
		if err != nil {
			return nil, err
		}
		outcomes[i] = outcome
	}
	return outcomes, nil
}
