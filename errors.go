package qharness

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration covers a bad trial count, a bad initial
	// assignment or an unknown circuit. It is never retried.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrBackendFailure is returned when allocation, a gate or a measurement
	// fails on the backend.
	ErrBackendFailure = errors.New("backend failure")

	// ErrInsufficientData is returned when aggregating an empty result stream.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrMalformedInput is returned when a trial result does not match the
	// circuit it is aggregated for.
	ErrMalformedInput = errors.New("malformed input")

	// ErrAborted is returned when the context ends an experiment early. No
	// partial summary is produced.
	ErrAborted = errors.New("experiment aborted")

	// ErrCapacity is returned by a backend that cannot hold the requested
	// number of qubits.
	ErrCapacity = errors.New("not enough qubits")
)

// noTrial marks an ExperimentError that is not tied to a single trial.
const noTrial = -1

/*
ExperimentError carries the context a caller needs to log a failed
experiment and retry it as a whole: which circuit, which trial, what kind of
failure. errors.Is matches both Kind and the underlying cause.
*/
type ExperimentError struct {
	Kind    error
	Circuit CircuitID
	Trial   int
	Err     error
}

func (e *ExperimentError) Error() string {
	if e.Trial == noTrial {
		return fmt.Sprintf("%s: circuit %s: %v", e.Kind, e.Circuit, e.Err)
	}
	return fmt.Sprintf("%s: circuit %s trial %d: %v", e.Kind, e.Circuit, e.Trial, e.Err)
}

func (e *ExperimentError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func newExperimentError(kind error, circuit CircuitID, trial int, err error) *ExperimentError {
	return &ExperimentError{Kind: kind, Circuit: circuit, Trial: trial, Err: err}
}

// Retryable reports whether a failed experiment may be run again as a whole.
// Only backend failures qualify; configuration and aggregation errors are
// defects that a rerun cannot fix.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrBackendFailure) && !errors.Is(err, ErrInvalidConfiguration)
}
