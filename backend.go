package qharness

import "fmt"

// Qubit is a handle to one qubit allocated from a Backend. It is only
// meaningful to the backend that issued it, and only until it is released.
type Qubit int

// Gate names a single or two qubit operation the backend knows how to apply.
type Gate int

const (
	GateH Gate = iota
	GateX
	GateY
	GateZ
	GateS
	GateSAdj
	GateCNOT
)

var gateNames = [...]string{
	GateH:    "H",
	GateX:    "X",
	GateY:    "Y",
	GateZ:    "Z",
	GateS:    "S",
	GateSAdj: "SAdj",
	GateCNOT: "CNOT",
}

func (g Gate) String() string {
	if g < 0 || int(g) >= len(gateNames) {
		return fmt.Sprintf("Gate(%d)", int(g))
	}
	return gateNames[g]
}

// Arity is the number of qubits the gate acts on. CNOT takes the control
// first and the target second.
func (g Gate) Arity() int {
	if g == GateCNOT {
		return 2
	}
	return 1
}

/*
Backend is the quantum execution capability the harness drives. It may be a
state-vector simulator or real hardware; the harness never looks at the
state itself.

Implementations are not required to support more than one allocation in
flight. Release must return the released qubits to the ground state so the
next trial starts clean.
*/
type Backend interface {
	Allocate(n int) ([]Qubit, error)
	Apply(gate Gate, qubits ...Qubit) error
	Measure(qubit Qubit) (Outcome, error)
	Release(qubits []Qubit) error
}

// BackendFactory builds an independent backend instance. The pool calls it
// once per worker so that no two workers share quantum state.
type BackendFactory func(worker int) (Backend, error)
