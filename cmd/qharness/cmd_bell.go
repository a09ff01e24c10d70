package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/qharness"
)

var bellCmd = &cobra.Command{
	Use:   "bell",
	Short: "Prepare the four Bell states and count how often the pair agrees",
	RunE:  runBell,
}

// bellInputs are the four computational basis inputs and the Bell state
// each one prepares.
var bellInputs = []struct {
	first, second qharness.Outcome
	state         string
}{
	{qharness.Zero, qharness.Zero, "phi+"},
	{qharness.One, qharness.Zero, "phi-"},
	{qharness.Zero, qharness.One, "psi+"},
	{qharness.One, qharness.One, "psi-"},
}

func runBell(cmd *cobra.Command, _ []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)
	runner, err := s.runner()
	if err != nil {
		return err
	}

	w := newTable("Bell pairs", "Inputs", "State", "Trials", "q0 0/1", "q1 0/1", "Agreements", "Rate")
	rightAlign(w, 3, 4, 5, 6, 7)

	for _, in := range bellInputs {
		summary, err := runner.Run(cmd.Context(), qharness.ExperimentConfig{
			Circuit: qharness.CircuitBell,
			Assignment: qharness.Assignment{Qubits: []qharness.Preparation{
				qharness.Z(in.first), qharness.Z(in.second),
			}},
			Trials: s.cfg.Trials,
		})
		if err != nil {
			return err
		}

		w.AppendRow([]any{
			fmt.Sprintf("(%s, %s)", in.first, in.second),
			in.state,
			summary.Trials,
			counts(summary.Counts[0]),
			counts(summary.Counts[1]),
			summary.Agreements,
			percent(summary.AgreementRate()),
		})
	}

	render(cmd.OutOrStdout(), w)
	return nil
}
