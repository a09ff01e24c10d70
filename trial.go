package qharness

import (
	"context"
	"errors"
	"fmt"
)

// TrialResult holds one outcome per observed qubit of a single trial, in
// observed-qubit order.
type TrialResult struct {
	Circuit  CircuitID
	Trial    int
	Outcomes []Outcome
}

/*
RunTrial executes one trial of a circuit on backend. The assignment is
checked before the backend is touched. Once qubits are allocated they are
released on every exit path, so the backend is back in its ground state when
RunTrial returns, whether the trial succeeded or not.
*/
func RunTrial(ctx context.Context, backend Backend, id CircuitID, a Assignment) (TrialResult, error) {
	return runTrial(ctx, backend, id, a, 0)
}

func runTrial(ctx context.Context, backend Backend, id CircuitID, a Assignment, index int) (result TrialResult, err error) {
	circuit, err := Lookup(id)
	if err != nil {
		return TrialResult{}, newExperimentError(ErrInvalidConfiguration, id, index, err)
	}
	if err := circuit.Validate(a); err != nil {
		return TrialResult{}, newExperimentError(ErrInvalidConfiguration, id, index, err)
	}
	if backend == nil {
		return TrialResult{}, newExperimentError(ErrInvalidConfiguration, id, index, errors.New("no backend"))
	}
	if err := ctx.Err(); err != nil {
		return TrialResult{}, newExperimentError(ErrAborted, id, index, err)
	}

	qubits, err := backend.Allocate(circuit.Width(a))
	if err != nil {
		kind := ErrBackendFailure
		if errors.Is(err, ErrCapacity) {
			kind = ErrInvalidConfiguration
		}
		return TrialResult{}, newExperimentError(kind, id, index, fmt.Errorf("allocate: %w", err))
	}

	defer func() {
		if releaseErr := backend.Release(qubits); releaseErr != nil {
			releaseErr = fmt.Errorf("release: %w", releaseErr)
			if err == nil {
				err = newExperimentError(ErrBackendFailure, id, index, releaseErr)
			} else {
				err = errors.Join(err, releaseErr)
			}
			result = TrialResult{}
		}
	}()

	outcomes, err := circuit.program(backend, qubits, a)
	if err != nil {
		return TrialResult{}, newExperimentError(ErrBackendFailure, id, index, err)
	}
	if len(outcomes) != circuit.Observed(a) {
		return TrialResult{}, newExperimentError(ErrMalformedInput, id, index,
			fmt.Errorf("circuit reported %d outcomes, want %d", len(outcomes), circuit.Observed(a)))
	}

	return TrialResult{Circuit: id, Trial: index, Outcomes: outcomes}, nil
}
