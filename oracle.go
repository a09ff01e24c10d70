package qharness

import (
	"fmt"
	"strings"
)

/*
OracleKind selects the black-box function f : {0,1}^n -> {0,1} an oracle
classifier is run against. The parity oracles are the balanced ones; for a
single input qubit odd parity is the identity and even parity the negation.
*/
type OracleKind int

const (
	OracleNone OracleKind = iota
	OracleConstantZero
	OracleConstantOne
	OracleOddParity
	OracleEvenParity
)

var oracleNames = map[OracleKind]string{
	OracleNone:         "none",
	OracleConstantZero: "constant-zero",
	OracleConstantOne:  "constant-one",
	OracleOddParity:    "odd-parity",
	OracleEvenParity:   "even-parity",
}

func (k OracleKind) String() string {
	if name, ok := oracleNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OracleKind(%d)", int(k))
}

// Balanced is the oracle's true class. It is never consulted by the
// aggregator; callers use it to label what a verdict should have been.
func (k OracleKind) Balanced() bool {
	return k == OracleOddParity || k == OracleEvenParity
}

func (k OracleKind) Valid() bool {
	return k >= OracleConstantZero && k <= OracleEvenParity
}

// Describe matches the wording of the classic demonstrations.
func (k OracleKind) Describe(inputs int) string {
	switch k {
	case OracleConstantZero:
		return "Returns a constant output of |0>"
	case OracleConstantOne:
		return "Returns a constant output of |1>"
	case OracleOddParity:
		if inputs == 1 {
			return "Returns the same state as the input qubit"
		}
		return "Returns |1>/|0> for odd/even inputs with state |1>"
	case OracleEvenParity:
		if inputs == 1 {
			return "Returns the negation of the input qubit"
		}
		return "Returns |1>/|0> for even/odd inputs with state |1>"
	}
	return k.String()
}

func (k OracleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *OracleKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOracle(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseOracle accepts the oracle names plus "identity" and "negation". An
// empty name is OracleNone, which circuits with an oracle reject.
func ParseOracle(s string) (OracleKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return OracleNone, nil
	case "constant-zero", "zero":
		return OracleConstantZero, nil
	case "constant-one", "one":
		return OracleConstantOne, nil
	case "odd-parity", "identity":
		return OracleOddParity, nil
	case "even-parity", "negation":
		return OracleEvenParity, nil
	}
	return OracleNone, fmt.Errorf("%w: unknown oracle %q", ErrInvalidConfiguration, s)
}

// apply runs the oracle |x>|y> -> |x>|y xor f(x)>.
func (k OracleKind) apply(backend Backend, inputs []Qubit, output Qubit) error {
	switch k {
	case OracleConstantZero:
		return nil
	case OracleConstantOne:
		return backend.Apply(GateX, output)
	case OracleOddParity, OracleEvenParity:
		for _, in := range inputs {
			if err := backend.Apply(GateCNOT, in, output); err != nil {
				return err
			}
		}
		if k == OracleEvenParity {
			return backend.Apply(GateX, output)
		}
		return nil
	}
	return fmt.Errorf("unknown oracle %s", k)
}
