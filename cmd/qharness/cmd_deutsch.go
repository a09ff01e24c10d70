package main

import (
	"github.com/spf13/cobra"

	"github.com/theapemachine/qharness"
)

var deutschFlags struct {
	inputs int
}

var deutschCmd = &cobra.Command{
	Use:   "deutsch",
	Short: "Classify the four oracles as constant or balanced",
	Long: "With --inputs=1 (the default) runs Deutsch's algorithm; with more\n" +
		"inputs runs Deutsch-Jozsa over an n input register.",
	RunE: runDeutsch,
}

var oracles = []qharness.OracleKind{
	qharness.OracleConstantZero,
	qharness.OracleConstantOne,
	qharness.OracleOddParity,
	qharness.OracleEvenParity,
}

func init() {
	deutschCmd.Flags().IntVar(&deutschFlags.inputs, "inputs", 1, "Input qubits of the oracle")
}

func runDeutsch(cmd *cobra.Command, _ []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)
	runner, err := s.runner()
	if err != nil {
		return err
	}

	circuit := qharness.CircuitDeutsch
	title := "Deutsch"
	assignment := qharness.Assignment{}
	if deutschFlags.inputs != 1 {
		circuit = qharness.CircuitDeutschJozsa
		title = "Deutsch-Jozsa"
		assignment.InputQubits = deutschFlags.inputs
	}

	w := newTable(title, "Oracle", "Function", "Inputs", "Trials", "Balanced votes", "Verdict", "Expected")
	rightAlign(w, 3, 4, 5)

	for _, oracle := range oracles {
		assignment.Oracle = oracle
		summary, err := runner.Run(cmd.Context(), qharness.ExperimentConfig{
			Circuit:    circuit,
			Assignment: assignment,
			Trials:     s.cfg.Trials,
		})
		if err != nil {
			return err
		}

		expected := qharness.Constant
		if oracle.Balanced() {
			expected = qharness.Balanced
		}
		w.AppendRow([]any{
			oracle,
			oracle.Describe(summary.InputQubits),
			summary.InputQubits,
			summary.Trials,
			summary.BalancedVotes,
			summary.Verdict,
			expected,
		})
	}

	render(cmd.OutOrStdout(), w)
	return nil
}
