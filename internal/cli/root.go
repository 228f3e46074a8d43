// Package cli provides the evalctl command tree.
package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root evalctl command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "evalctl",
		Short: "Run response evaluations without the HTTP service",
		Long: `evalctl - offline runner for the evaluation pipeline

evalctl reconciles logged responses against a ground-truth table, scores them
with the configured judge and writes the same results file the API produces.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(newRunCmd())

	return rootCmd
}

// Execute runs the root command with the given arguments and output writers.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.ExecuteContext(ctx)
}
