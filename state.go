package qharness

import (
	"fmt"
	"strings"
)

/*
Outcome is the result of measuring one qubit once in the computational basis.
It is one of exactly two values and never changes once produced.
*/
type Outcome int

const (
	Zero Outcome = iota
	One
)

func (o Outcome) String() string {
	switch o {
	case Zero:
		return "Zero"
	case One:
		return "One"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Valid reports whether o is Zero or One.
func (o Outcome) Valid() bool {
	return o == Zero || o == One
}

// Flip returns the other outcome.
func (o Outcome) Flip() Outcome {
	if o == Zero {
		return One
	}
	return Zero
}

func (o Outcome) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("%w: outcome %d", ErrInvalidConfiguration, int(o))
	}
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	parsed, err := ParseOutcome(string(text))
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// ParseOutcome accepts "Zero"/"One" in any case, or "0"/"1".
func ParseOutcome(s string) (Outcome, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zero", "0":
		return Zero, nil
	case "one", "1":
		return One, nil
	}
	return Zero, fmt.Errorf("%w: unknown outcome %q", ErrInvalidConfiguration, s)
}

/*
Basis is the Pauli basis a qubit is prepared or measured in.
*/
type Basis int

const (
	PauliZ Basis = iota
	PauliX
	PauliY
)

func (b Basis) String() string {
	switch b {
	case PauliZ:
		return "PauliZ"
	case PauliX:
		return "PauliX"
	case PauliY:
		return "PauliY"
	default:
		return fmt.Sprintf("Basis(%d)", int(b))
	}
}

func (b Basis) Valid() bool {
	return b >= PauliZ && b <= PauliY
}

func (b Basis) MarshalText() ([]byte, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("%w: basis %d", ErrInvalidConfiguration, int(b))
	}
	return []byte(b.String()), nil
}

func (b *Basis) UnmarshalText(text []byte) error {
	parsed, err := ParseBasis(string(text))
	if err != nil {
		return err
	}
	*b = parsed
	return nil
}

// ParseBasis accepts "Z", "X", "Y" or the "PauliZ" style names, in any case.
func ParseBasis(s string) (Basis, error) {
	switch strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "pauli") {
	case "z", "":
		return PauliZ, nil
	case "x":
		return PauliX, nil
	case "y":
		return PauliY, nil
	}
	return PauliZ, fmt.Errorf("%w: unknown basis %q", ErrInvalidConfiguration, s)
}

/*
Preparation describes the initial state of one input qubit: Value is set in
the computational basis and then rotated into Basis. With PauliX this gives
|+> for Zero and |-> for One, with PauliY |+i> and |-i>.
*/
type Preparation struct {
	Value Outcome `yaml:"value"`
	Basis Basis   `yaml:"basis"`
}

// Z is shorthand for a computational basis preparation.
func Z(value Outcome) Preparation {
	return Preparation{Value: value, Basis: PauliZ}
}

func (p Preparation) Valid() bool {
	return p.Value.Valid() && p.Basis.Valid()
}

// Label is the ket the preparation produces.
func (p Preparation) Label() string {
	switch {
	case p.Basis == PauliZ && p.Value == Zero:
		return "|0>"
	case p.Basis == PauliZ:
		return "|1>"
	case p.Basis == PauliX && p.Value == Zero:
		return "|+>"
	case p.Basis == PauliX:
		return "|->"
	case p.Value == Zero:
		return "|+i>"
	default:
		return "|-i>"
	}
}

func (p Preparation) String() string {
	return fmt.Sprintf("%s/%s", p.Value, p.Basis)
}
