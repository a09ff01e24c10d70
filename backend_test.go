package qharness

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

var errMockBackend = errors.New("mock backend fault")

/*
mockBackend records every call and lets a test script measurement outcomes
and faults. law receives the trial number (counted by allocations) and the
qubit being measured.
*/
type mockBackend struct {
	mu sync.Mutex

	law func(trial int, q Qubit) Outcome

	failAllocate error
	failApply    error
	failMeasure  error
	failRelease  error
	failAtTrial  int

	events   []string
	trial    int
	inUse    int
	measured map[Qubit]int
}

func newMockBackend(law func(trial int, q Qubit) Outcome) *mockBackend {
	return &mockBackend{law: law, trial: -1, failAtTrial: -1}
}

func (m *mockBackend) failing() bool {
	return m.failAtTrial < 0 || m.failAtTrial == m.trial
}

func (m *mockBackend) Allocate(n int) ([]Qubit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.trial++
	if m.failAllocate != nil && m.failing() {
		m.events = append(m.events, "allocate-failed")
		return nil, m.failAllocate
	}
	if m.inUse != 0 {
		return nil, fmt.Errorf("allocate while %d qubits in use", m.inUse)
	}

	m.events = append(m.events, "allocate")
	m.inUse = n
	m.measured = make(map[Qubit]int)

	qubits := make([]Qubit, n)
	for i := range qubits {
		qubits[i] = Qubit(i)
	}
	return qubits, nil
}

func (m *mockBackend) Apply(gate Gate, qubits ...Qubit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failApply != nil && m.failing() {
		m.events = append(m.events, "apply-failed")
		return m.failApply
	}
	return nil
}

func (m *mockBackend) Measure(q Qubit) (Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failMeasure != nil && m.failing() {
		m.events = append(m.events, "measure-failed")
		return Zero, m.failMeasure
	}
	m.events = append(m.events, "measure")
	m.measured[q]++
	return m.law(m.trial, q), nil
}

func (m *mockBackend) Release(qubits []Qubit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, "release")
	m.inUse = 0
	if m.failRelease != nil && m.failing() {
		return m.failRelease
	}
	return nil
}

func (m *mockBackend) Events() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.events...)
}

func (m *mockBackend) count(event string) int {
	n := 0
	for _, e := range m.Events() {
		if e == event {
			n++
		}
	}
	return n
}

// correlated reads the same outcome on every qubit, alternating per trial.
func correlated(trial int, q Qubit) Outcome {
	return Outcome(trial % 2)
}

// anticorrelated reads opposite outcomes on qubits 0 and 1.
func anticorrelated(trial int, q Qubit) Outcome {
	o := Outcome(trial % 2)
	if q == 1 {
		return o.Flip()
	}
	return o
}

func always(o Outcome) func(int, Qubit) Outcome {
	return func(int, Qubit) Outcome { return o }
}

func TestGate(t *testing.T) {
	Convey("Given the gate set", t, func() {
		Convey("Only CNOT acts on two qubits", func() {
			for gate := GateH; gate <= GateCNOT; gate++ {
				if gate == GateCNOT {
					So(gate.Arity(), ShouldEqual, 2)
				} else {
					So(gate.Arity(), ShouldEqual, 1)
				}
			}
		})

		Convey("Gates have readable names", func() {
			So(GateSAdj.String(), ShouldEqual, "SAdj")
			So(Gate(42).String(), ShouldEqual, "Gate(42)")
		})
	})
}
