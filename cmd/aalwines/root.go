package main

import (
	"fmt"

	"github.com/aalwines/verifier/internal/config"
	"github.com/spf13/cobra"
)

type exitCode int

const (
	exitCodeSuccess exitCode = 0
	exitCodeError   exitCode = 1
)

// run builds and executes the root command. Exit 0 means every query was
// processed, regardless of verdict; non-zero means a parse error or an
// unsupported option.
func run() exitCode {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "aalwines",
		Short: "Verify reachability and policy properties of MPLS-style label-switched networks",
		RunE:  runVerify,
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")
	rootCmd.Flags().String("input", "", "path to the network JSON file")
	rootCmd.Flags().String("config", "", "path to a YAML defaults file")
	rootCmd.Flags().Int("engine", config.DefaultEngine, "solver engine: 1 (post*) or 2 (pre*)")
	rootCmd.Flags().Int("reduction", config.DefaultReduction, "PDA reduction level (0 disables reduction)")
	rootCmd.Flags().String("weight", "", "path to a weight DSL JSON file")

	rootCmd.AddCommand(newTopologyCmd())

	return rootCmd
}

func flagError(name string, err error) error {
	return fmt.Errorf("failed to get %s flag: %w", name, err)
}
