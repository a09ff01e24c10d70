package qharness

import (
	"fmt"
	"math"
	"math/cmplx"
	"math/rand/v2"
	"sync"

	"github.com/theapemachine/errnie"
)

// snap is how close a measurement probability has to be to 0 or 1 before it
// is treated as exact. Ideal circuits then give deterministic outcomes despite
// floating point drift in the amplitudes.
const snap = 1e-12

// DefaultMaxQubits bounds the state vector at 2^16 amplitudes.
const DefaultMaxQubits = 16

// SimulatorQubitLimit is the largest register any Simulator allocates:
// 2^24 amplitudes, 256 MiB of state vector.
const SimulatorQubitLimit = 24

/*
QuantumState is a state vector over a register of qubits. Qubit i is bit i
of the basis index.
*/
type QuantumState struct {
	Vector []complex128
}

func newQuantumState(qubits int) *QuantumState {
	vector := make([]complex128, 1<<qubits)
	vector[0] = 1
	return &QuantumState{Vector: vector}
}

// probabilityOne is the probability of measuring One on qubit q.
func (qs *QuantumState) probabilityOne(q int) float64 {
	bit := 1 << q
	var p float64
	for i, amplitude := range qs.Vector {
		if i&bit != 0 {
			m := cmplx.Abs(amplitude)
			p += m * m
		}
	}
	return p
}

// collapse projects qubit q onto outcome and renormalizes.
func (qs *QuantumState) collapse(q int, outcome Outcome, p float64) {
	bit := 1 << q
	norm := complex(math.Sqrt(p), 0)
	for i := range qs.Vector {
		if (i&bit != 0) == (outcome == One) {
			qs.Vector[i] /= norm
		} else {
			qs.Vector[i] = 0
		}
	}
}

func (qs *QuantumState) hadamard(q int) {
	h := complex(1/math.Sqrt2, 0)
	bit := 1 << q
	for i := range qs.Vector {
		if i&bit == 0 {
			j := i | bit
			alpha, beta := qs.Vector[i], qs.Vector[j]
			qs.Vector[i] = h * (alpha + beta)
			qs.Vector[j] = h * (alpha - beta)
		}
	}
}

func (qs *QuantumState) pauliX(q int) {
	bit := 1 << q
	for i := range qs.Vector {
		if i&bit == 0 {
			j := i | bit
			qs.Vector[i], qs.Vector[j] = qs.Vector[j], qs.Vector[i]
		}
	}
}

func (qs *QuantumState) pauliY(q int) {
	bit := 1 << q
	for i := range qs.Vector {
		if i&bit == 0 {
			j := i | bit
			qs.Vector[i], qs.Vector[j] = -1i*qs.Vector[j], 1i*qs.Vector[i]
		}
	}
}

// phase multiplies every amplitude where q is One by factor.
func (qs *QuantumState) phase(q int, factor complex128) {
	bit := 1 << q
	for i := range qs.Vector {
		if i&bit != 0 {
			qs.Vector[i] *= factor
		}
	}
}

func (qs *QuantumState) cnot(control, target int) {
	cbit, tbit := 1<<control, 1<<target
	for i := range qs.Vector {
		if i&cbit != 0 && i&tbit == 0 {
			j := i | tbit
			qs.Vector[i], qs.Vector[j] = qs.Vector[j], qs.Vector[i]
		}
	}
}

/*
Simulator is a state-vector Backend. It holds at most one allocation at a
time, which is all a sequential experiment needs, and draws measurement
randomness from its own seeded generator so runs can be reproduced.
*/
type Simulator struct {
	mu        sync.Mutex
	maxQubits int
	rng       *rand.Rand
	state     *QuantumState
	allocated int
}

// SimulatorOption configures a Simulator.
type SimulatorOption func(*Simulator)

// WithSeed makes measurement outcomes reproducible.
func WithSeed(seed uint64) SimulatorOption {
	return func(s *Simulator) {
		s.rng = rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// WithMaxQubits sets the largest register the simulator will allocate,
// clamped to between 1 and SimulatorQubitLimit.
func WithMaxQubits(n int) SimulatorOption {
	return func(s *Simulator) {
		s.maxQubits = min(max(n, 1), SimulatorQubitLimit)
	}
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		maxQubits: DefaultMaxQubits,
		rng:       rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	errnie.Info("NewSimulator - maxQubits %d", s.maxQubits)
	return s
}

func (s *Simulator) Allocate(n int) ([]Qubit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < 1 {
		return nil, fmt.Errorf("allocate %d qubits: count must be positive", n)
	}
	if n > s.maxQubits {
		return nil, fmt.Errorf("allocate %d qubits of %d: %w", n, s.maxQubits, ErrCapacity)
	}
	if s.state != nil {
		return nil, fmt.Errorf("allocate %d qubits: %d qubits still in use", n, s.allocated)
	}

	s.state = newQuantumState(n)
	s.allocated = n

	qubits := make([]Qubit, n)
	for i := range qubits {
		qubits[i] = Qubit(i)
	}
	return qubits, nil
}

func (s *Simulator) Apply(gate Gate, qubits ...Qubit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(qubits) != gate.Arity() {
		return fmt.Errorf("gate %s takes %d qubits, got %d", gate, gate.Arity(), len(qubits))
	}
	for _, q := range qubits {
		if err := s.check(q); err != nil {
			return fmt.Errorf("gate %s: %w", gate, err)
		}
	}

	q := int(qubits[0])
	switch gate {
	case GateH:
		s.state.hadamard(q)
	case GateX:
		s.state.pauliX(q)
	case GateY:
		s.state.pauliY(q)
	case GateZ:
		s.state.phase(q, -1)
	case GateS:
		s.state.phase(q, 1i)
	case GateSAdj:
		s.state.phase(q, -1i)
	case GateCNOT:
		if qubits[0] == qubits[1] {
			return fmt.Errorf("gate %s: control and target are both qubit %d", gate, q)
		}
		s.state.cnot(q, int(qubits[1]))
	default:
		return fmt.Errorf("unsupported gate %s", gate)
	}
	return nil
}

func (s *Simulator) Measure(qubit Qubit) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.check(qubit); err != nil {
		return Zero, fmt.Errorf("measure: %w", err)
	}

	q := int(qubit)
	p := s.state.probabilityOne(q)
	switch {
	case p < snap:
		p = 0
	case p > 1-snap:
		p = 1
	}

	outcome := Zero
	if s.rng.Float64() < p {
		outcome = One
	}

	if outcome == One {
		s.state.collapse(q, One, p)
	} else {
		s.state.collapse(q, Zero, 1-p)
	}
	return outcome, nil
}

// Release resets the whole register to the ground state and frees it.
func (s *Simulator) Release(qubits []Qubit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == nil {
		return fmt.Errorf("release %d qubits: nothing allocated", len(qubits))
	}
	for _, q := range qubits {
		if err := s.check(q); err != nil {
			return fmt.Errorf("release: %w", err)
		}
	}

	s.state = nil
	s.allocated = 0
	return nil
}

// InUse reports how many qubits are currently allocated.
func (s *Simulator) InUse() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.allocated
}

func (s *Simulator) check(q Qubit) error {
	if s.state == nil {
		return fmt.Errorf("qubit %d: nothing allocated", q)
	}
	if q < 0 || int(q) >= s.allocated {
		return fmt.Errorf("qubit %d: out of range [0, %d)", q, s.allocated)
	}
	return nil
}
