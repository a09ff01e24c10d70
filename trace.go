package qharness

import (
	"encoding/csv"
	"io"
	"strconv"
	"sync"
)

/*
TraceBackend wraps a Backend and counts what flows through it: the widest
allocation (how many qubits the circuit needed at once), gates by kind,
measurements and allocate/release pairs. It changes no behaviour of the
wrapped backend.
*/
type TraceBackend struct {
	Backend

	mu           sync.Mutex
	width        int
	inUse        int
	gates        map[Gate]int
	measurements int
	allocations  int
	releases     int
}

func NewTraceBackend(backend Backend) *TraceBackend {
	return &TraceBackend{
		Backend: backend,
		gates:   make(map[Gate]int),
	}
}

func (t *TraceBackend) Allocate(n int) ([]Qubit, error) {
	qubits, err := t.Backend.Allocate(n)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.allocations++
	t.inUse += len(qubits)
	t.width = max(t.width, t.inUse)
	return qubits, nil
}

func (t *TraceBackend) Apply(gate Gate, qubits ...Qubit) error {
	if err := t.Backend.Apply(gate, qubits...); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.gates[gate]++
	return nil
}

func (t *TraceBackend) Measure(qubit Qubit) (Outcome, error) {
	outcome, err := t.Backend.Measure(qubit)
	if err != nil {
		return outcome, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.measurements++
	return outcome, nil
}

func (t *TraceBackend) Release(qubits []Qubit) error {
	err := t.Backend.Release(qubits)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.releases++
	t.inUse = max(0, t.inUse-len(qubits))
	return err
}

// TraceCounters is a snapshot of a TraceBackend.
type TraceCounters struct {
	Width        int
	Gates        map[Gate]int
	Measurements int
	Allocations  int
	Releases     int
}

func (t *TraceBackend) Counters() TraceCounters {
	t.mu.Lock()
	defer t.mu.Unlock()

	gates := make(map[Gate]int, len(t.gates))
	for gate, n := range t.gates {
		gates[gate] = n
	}
	return TraceCounters{
		Width:        t.width,
		Gates:        gates,
		Measurements: t.measurements,
		Allocations:  t.allocations,
		Releases:     t.releases,
	}
}

// Add merges two snapshots, e.g. from the traced backends of several
// workers. Width is the larger of the two.
func (c TraceCounters) Add(other TraceCounters) TraceCounters {
	gates := make(map[Gate]int, len(c.Gates))
	for gate, n := range c.Gates {
		gates[gate] = n
	}
	for gate, n := range other.Gates {
		gates[gate] += n
	}
	return TraceCounters{
		Width:        max(c.Width, other.Width),
		Gates:        gates,
		Measurements: c.Measurements + other.Measurements,
		Allocations:  c.Allocations + other.Allocations,
		Releases:     c.Releases + other.Releases,
	}
}

// WriteCSV writes the counters as metric,value rows.
func (c TraceCounters) WriteCSV(w io.Writer) error {
	rows := [][]string{
		{"metric", "value"},
		{"width", strconv.Itoa(c.Width)},
		{"allocations", strconv.Itoa(c.Allocations)},
		{"releases", strconv.Itoa(c.Releases)},
		{"measurements", strconv.Itoa(c.Measurements)},
	}
	for gate := GateH; gate <= GateCNOT; gate++ {
		rows = append(rows, []string{"gate_" + gate.String(), strconv.Itoa(c.Gates[gate])})
	}

	out := csv.NewWriter(w)
	if err := out.WriteAll(rows); err != nil {
		return err
	}
	return out.Error()
}

func (t *TraceBackend) WriteCSV(w io.Writer) error {
	return t.Counters().WriteCSV(w)
}
