package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by the linker.
var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tumorsim",
		Short: "Stochastic lattice tumor growth simulator",
		Long: `tumorsim grows tumors on a periodic 3D lattice, one stochastic step at a time.

Components (single cells, clonal lineages, or demes of lineages) grow, mutate,
divide and senesce under configurable models. Each trial is reproducible from
the run seed and the trial index.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (YAML, or .properties)")
	rootCmd.PersistentFlags().StringArray("set", nil, "Override a property, e.g. --set growth.birth_rate=0.6 (repeatable)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
		newValidateCmd(),
		newConfigCmd(),
		newPlotCmd(),
		newRunsCmd(),
		newMCPServerCmd(),
	)
	return rootCmd
}
