package main

import (
	"github.com/spf13/cobra"

	"github.com/theapemachine/qharness"
)

var teleportCmd = &cobra.Command{
	Use:   "teleport",
	Short: "Teleport the six Pauli eigenstates and measure the fidelity",
	RunE:  runTeleport,
}

func runTeleport(cmd *cobra.Command, _ []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)
	runner, err := s.runner()
	if err != nil {
		return err
	}

	w := newTable("Teleportation", "Sent", "Basis", "Trials", "Received 0/1", "Matches", "Fidelity")
	rightAlign(w, 3, 4, 5, 6)

	for _, basis := range []qharness.Basis{qharness.PauliZ, qharness.PauliX, qharness.PauliY} {
		for _, value := range []qharness.Outcome{qharness.Zero, qharness.One} {
			sent := qharness.Preparation{Value: value, Basis: basis}
			summary, err := runner.Run(cmd.Context(), qharness.ExperimentConfig{
				Circuit:    qharness.CircuitTeleportation,
				Assignment: qharness.Assignment{Qubits: []qharness.Preparation{sent}},
				Trials:     s.cfg.Trials,
			})
			if err != nil {
				return err
			}

			w.AppendRow([]any{
				sent.Label(),
				basis,
				summary.Trials,
				counts(summary.Counts[0]),
				summary.Agreements,
				percent(summary.AgreementRate()),
			})
		}
	}

	render(cmd.OutOrStdout(), w)
	return nil
}
