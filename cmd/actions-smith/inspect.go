package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wonderfulspam/actions-smith/pkg/parser"
	"github.com/wonderfulspam/actions-smith/pkg/renderer"
	"github.com/wonderfulspam/actions-smith/pkg/source"
)

type inspectOptions struct {
	format       string
	withIncludes bool
	configPath   string
}

func newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	inspectCmd := &cobra.Command{
		Use:   "inspect [file]",
		Short: "Summarize a GitLab CI file without contacting a model",
		Long: `Parse a GitLab CI file and print its stages, jobs, variables and includes.
Nothing is sent to a model, so this shows what a conversion would work from.
If no file is given, .gitlab-ci.yml is read.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd, args, opts)
		},
	}

	inspectCmd.Flags().StringVarP(&opts.format, "format", "f", "table", "Output format (table, json)")
	inspectCmd.Flags().BoolVar(&opts.withIncludes, "with-includes", false, "Resolve includes and merge them into the summary")
	inspectCmd.Flags().StringVar(&opts.configPath, "config", "", "Configuration file, used for the GitLab instance of project includes")
	return inspectCmd
}

func runInspect(cmd *cobra.Command, args []string, opts *inspectOptions) error {
	path := source.DefaultPath
	if len(args) > 0 {
		path = args[0]
	}

	ci, err := parser.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse file: %w", err)
	}

	if opts.withIncludes && len(ci.Include) > 0 {
		cfg, _, err := loadConfig(opts.configPath)
		if err != nil {
			return err
		}
		gl, err := newGitLabClient(cfg)
		if err != nil {
			return err
		}

		resolver := parser.NewIncludeResolver(parser.WithProjectReader(gl))
		resolved, errs := resolver.Resolve(cmd.Context(), ci, filepath.Dir(path))
		for _, err := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: %v\n", err)
		}
		parser.MergeIncludes(ci, resolved)
	}

	output, err := renderer.FormatSummary(path, parser.Summarize(ci), opts.format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}
