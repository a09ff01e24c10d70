// qharness runs quantum circuit experiments on the state-vector simulator
// and reports aggregated outcome statistics.
//
// Usage:
//
//	qharness bell     [--trials=N] [--seed=S]
//	qharness deutsch  [--inputs=N]
//	qharness teleport [--trials=N]
//	qharness run      --plan=<plan.yaml>
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	configPath  string
	trials      int
	seed        uint64
	logLevel    string
	tracePath   string
	metricsAddr string
	markdown    bool
}

var rootCmd = &cobra.Command{
	Use:   "qharness",
	Short: "Run quantum circuit experiments and aggregate their outcomes",
	Long: "qharness runs Bell pair, Deutsch/Deutsch-Jozsa and teleportation experiments\n" +
		"as repeated independent trials and reduces the measured outcomes to\n" +
		"agreement counts, fidelities and constant/balanced verdicts.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.configPath, "config", "", "Config file (YAML, TOML or JSON)")
	f.IntVar(&rootFlags.trials, "trials", 0, "Trials per experiment (overrides config)")
	f.Uint64Var(&rootFlags.seed, "seed", 0, "Simulator seed; 0 draws a random one")
	f.StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&rootFlags.tracePath, "trace", "", "Write backend trace counters as CSV to this file")
	f.StringVar(&rootFlags.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	f.BoolVar(&rootFlags.markdown, "markdown", false, "Render tables as Markdown")

	rootCmd.AddCommand(bellCmd)
	rootCmd.AddCommand(deutschCmd)
	rootCmd.AddCommand(teleportCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
