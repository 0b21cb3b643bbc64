package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/wonderfulspam/actions-smith/pkg/config"
	"github.com/wonderfulspam/actions-smith/pkg/renderer"
)

func newModelsCmd() *cobra.Command {
	var format, configPath string

	modelsCmd := &cobra.Command{
		Use:   "models",
		Short: "List the configured models and their prices",
		Long: `List the standard and quick model of every provider together with the
price used for cost estimates. The selected provider is marked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(cmd, configPath, format)
		},
	}

	modelsCmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, json)")
	modelsCmd.Flags().StringVar(&configPath, "config", "", "Configuration file (default "+config.DefaultFile+" if present)")
	return modelsCmd
}

func runModels(cmd *cobra.Command, configPath, format string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	output, err := renderer.FormatModels(modelRows(cfg), format)
	if err != nil {
		return err
	}
	fmt.Fprint(cmd.OutOrStdout(), output)
	return nil
}

func modelRows(cfg *config.Config) []renderer.ModelRow {
	table := cfg.PriceTable()

	var rows []renderer.ModelRow
	for _, provider := range config.Providers {
		set := cfg.Models[string(provider)]
		tiers := []struct{ name, model string }{
			{"standard", set.Standard},
			{"quick", set.Quick},
		}
		for _, tier := range tiers {
			row := renderer.ModelRow{
				Provider: string(provider),
				Tier:     tier.name,
				Model:    tier.model,
				Default:  provider == cfg.Provider,
			}
			if price, ok := table.Lookup(tier.model); ok {
				row.Price = &price
			}
			rows = append(rows, row)
		}
	}
	return rows
}
