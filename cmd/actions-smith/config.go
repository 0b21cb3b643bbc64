package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/wonderfulspam/actions-smith/pkg/config"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage actions-smith configuration",
		Long:  `Manage actions-smith configuration files, including initialization and validation.`,
	}

	configInitCmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Generate a default configuration file",
		Long: `Generate a configuration file with every setting at its default. If no file
is specified, creates .actions-smith.yml in the current directory. Files
ending in .toml or .json are written in that format.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runConfigInit,
	}

	configValidateCmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a configuration file",
		Long:  `Validate an actions-smith configuration file for correctness.`,
		Args:  cobra.ExactArgs(1),
		RunE:  runConfigValidate,
	}

	var configPath string
	configShowCmd := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print the configuration a conversion would use: the configuration file, or
the defaults when there is none, with environment overrides applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, configPath)
		},
	}
	configShowCmd.Flags().StringVar(&configPath, "config", "", "Configuration file (default "+config.DefaultFile+" if present)")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
	return configCmd
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	outputFile := config.DefaultFile
	if len(args) > 0 {
		outputFile = args[0]
	}

	if _, err := os.Stat(outputFile); err == nil {
		return fmt.Errorf("configuration file %s already exists", outputFile)
	}

	switch strings.ToLower(filepath.Ext(outputFile)) {
	case ".toml", ".json":
		if err := config.Default().Save(outputFile); err != nil {
			return fmt.Errorf("failed to write configuration file: %w", err)
		}
	default:
		if err := os.WriteFile(outputFile, []byte(config.Template), 0o644); err != nil {
			return fmt.Errorf("failed to write configuration file: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Configuration file created: %s\n", outputFile)
	fmt.Fprintf(out, "\nYou can now:\n")
	fmt.Fprintf(out, "1. Edit the file to choose a provider and models\n")
	fmt.Fprintf(out, "2. Use it with: actions-smith --config=%s --file=.gitlab-ci.yml\n", outputFile)
	fmt.Fprintf(out, "3. Validate it with: actions-smith config validate %s\n", outputFile)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	standard, _ := cfg.Model(cfg.Provider, false)
	quick, _ := cfg.Model(cfg.Provider, true)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✅ Configuration is valid!\n\n")
	fmt.Fprintf(out, "Summary:\n")
	fmt.Fprintf(out, "  Version: %s\n", cfg.Version)
	fmt.Fprintf(out, "  Provider: %s\n", cfg.Provider)
	fmt.Fprintf(out, "  Standard Model: %s\n", standard)
	fmt.Fprintf(out, "  Quick Model: %s\n", quick)
	fmt.Fprintf(out, "  Output: %s (color %s)\n", cfg.Output.Format, cfg.Output.Color)
	if len(cfg.Pricing) > 0 {
		fmt.Fprintf(out, "  Price Overrides: %d models\n", len(cfg.Pricing))
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, configPath string) error {
	cfg, from, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n%s", from, data)
	return nil
}
