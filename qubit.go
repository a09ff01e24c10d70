package qharness

import "fmt"

// prepare takes a freshly allocated qubit in |0> to the state p describes.
func prepare(backend Backend, q Qubit, p Preparation) error {
	if p.Value == One {
		if err := backend.Apply(GateX, q); err != nil {
			return err
		}
	}

	switch p.Basis {
	case PauliZ:
		return nil
	case PauliX:
		return backend.Apply(GateH, q)
	case PauliY:
		if err := backend.Apply(GateH, q); err != nil {
			return err
		}
		return backend.Apply(GateS, q)
	}
	return fmt.Errorf("unknown basis %s", p.Basis)
}

// measureIn rotates q from basis back to the computational basis and
// measures it, so a qubit prepared as Preparation{v, basis} reads v.
func measureIn(backend Backend, q Qubit, basis Basis) (Outcome, error) {
	switch basis {
	case PauliZ:
	case PauliX:
		if err := backend.Apply(GateH, q); err != nil {
			return Zero, err
		}
	case PauliY:
		if err := backend.Apply(GateSAdj, q); err != nil {
			return Zero, err
		}
		if err := backend.Apply(GateH, q); err != nil {
			return Zero, err
		}
	default:
		return Zero, fmt.Errorf("unknown basis %s", basis)
	}
	return backend.Measure(q)
}

// applyAll applies a single qubit gate to every qubit in qs.
func applyAll(backend Backend, gate Gate, qs []Qubit) error {
	for _, q := range qs {
		if err := backend.Apply(gate, q); err != nil {
			return err
		}
	}
	return nil
}
