package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	opts := &convertOptions{}

	rootCmd := &cobra.Command{
		Use:   "actions-smith",
		Short: "Convert GitLab CI configuration to GitHub Actions workflows",
		Long: `actions-smith converts a GitLab CI configuration file into a GitHub Actions
workflow by asking a chat model to plan the migration and then write the
workflow. Thorough mode adds a critique pass and applies its feedback.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}

	opts.register(rootCmd)
	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newModelsCmd())
	rootCmd.AddCommand(newConfigCmd())
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
