package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theapemachine/qharness"
)

var runFlags struct {
	plan    string
	retries int
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a YAML plan of experiments in parallel on the worker pool",
	RunE:  runPlan,
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runFlags.plan, "plan", "p", "", "Plan file (required)")
	f.IntVar(&runFlags.retries, "retries", 0, "Attempts per experiment after backend failures (overrides config)")

	_ = runCmd.MarkFlagRequired("plan")
}

func runPlan(cmd *cobra.Command, _ []string) (err error) {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.finish(&err)

	plan, err := qharness.LoadPlan(runFlags.plan, s.cfg.Trials)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("retries") {
		s.cfg.RetryAttempts = runFlags.retries
	}

	pool, err := qharness.NewPool(cmd.Context(), s.cfg, s.factory(),
		qharness.WithPoolLogger(s.logger),
		qharness.WithPoolMetrics(s.metrics),
		qharness.WithBreaker(3, s.cfg.SchedulingTimeout, 1),
	)
	if err != nil {
		return err
	}

	results := make([]chan qharness.Result, len(plan.Experiments))
	for i, entry := range plan.Experiments {
		results[i] = pool.Schedule(entry.Name, entry.ExperimentConfig)
	}

	w := newTable(fmt.Sprintf("Plan %s", runFlags.plan), "Experiment", "Circuit", "Trials", "Result")
	rightAlign(w, 3)

	failed := 0
	for i, entry := range plan.Experiments {
		result := <-results[i]
		outcome := describe(result.Summary)
		if result.Error != nil {
			failed++
			outcome = "error: " + result.Error.Error()
		}
		w.AppendRow([]any{entry.Name, entry.Circuit, entry.Trials, outcome})
	}
	pool.Close()

	render(cmd.OutOrStdout(), w)
	if failed > 0 {
		return fmt.Errorf("%d of %d experiments failed", failed, len(plan.Experiments))
	}
	return nil
}
