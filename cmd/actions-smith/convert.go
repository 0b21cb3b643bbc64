package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wonderfulspam/actions-smith/pkg/config"
	"github.com/wonderfulspam/actions-smith/pkg/converter"
	"github.com/wonderfulspam/actions-smith/pkg/gitlab"
	"github.com/wonderfulspam/actions-smith/pkg/logging"
	"github.com/wonderfulspam/actions-smith/pkg/pricing"
	"github.com/wonderfulspam/actions-smith/pkg/progress"
	"github.com/wonderfulspam/actions-smith/pkg/renderer"
	"github.com/wonderfulspam/actions-smith/pkg/source"
	"github.com/wonderfulspam/actions-smith/pkg/workflow"
)

// dotEnvFile is loaded before the configuration when present.
const dotEnvFile = ".env"

type convertOptions struct {
	file         string
	showUsage    bool
	thorough     bool
	quick        bool
	configPath   string
	provider     string
	model        string
	format       string
	color        string
	logLevel     string
	withIncludes bool
	project      string
	ref          string
	timeout      time.Duration
}

func (o *convertOptions) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&o.file, "file", source.DefaultPath, "GitLab CI file to convert")
	flags.BoolVar(&o.showUsage, "show-usage", false, "Print token usage and cost per stage and in total")
	flags.BoolVar(&o.thorough, "thorough", false, "Critique the converted workflow and apply the feedback")
	flags.BoolVar(&o.quick, "quick", false, "Use the provider's quick model")
	cmd.MarkFlagsMutuallyExclusive("thorough", "quick")

	flags.StringVar(&o.configPath, "config", "", "Configuration file (default "+config.DefaultFile+" if present)")
	flags.StringVar(&o.provider, "provider", "", "Chat model provider (openai, gemini, bedrock)")
	flags.StringVar(&o.model, "model", "", "Model id, overriding the configured standard and quick models")
	flags.StringVar(&o.format, "format", "", "Output format (text, json)")
	flags.StringVar(&o.color, "color", "", "Colorize output (auto, always, never)")
	flags.StringVar(&o.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.BoolVar(&o.withIncludes, "with-includes", false, "Append the CI file's includes to the text sent to the model")
	flags.StringVar(&o.project, "gitlab-project", "", "Read --file from this GitLab project (id or path) instead of disk")
	flags.StringVar(&o.ref, "ref", "", "Branch, tag or commit to read with --gitlab-project")
	flags.DurationVar(&o.timeout, "timeout", 0, "Abort the whole run after this long (0 disables)")
}

func (o *convertOptions) mode() converter.Mode {
	if o.thorough {
		return converter.ModeThorough
	}
	return converter.ModeStandard
}

// loadConfig loads .env, resolves the configuration file and applies the
// environment overrides. Every command reads its settings this way.
func loadConfig(path string) (*config.Config, string, error) {
	if _, err := config.LoadDotEnv(dotEnvFile); err != nil {
		return nil, "", err
	}
	cfg, from, err := config.Resolve(path)
	if err != nil {
		return nil, "", err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, from, nil
}

// loadSettings applies flag overrides on top of loadConfig. The result is
// validated.
func (o *convertOptions) loadSettings() (*config.Config, string, error) {
	cfg, from, err := loadConfig(o.configPath)
	if err != nil {
		return nil, "", err
	}

	if o.provider != "" {
		provider, err := config.ParseProvider(o.provider)
		if err != nil {
			return nil, "", err
		}
		cfg.Provider = provider
	}
	if o.format != "" {
		cfg.Output.Format = o.format
	}
	if o.color != "" {
		cfg.Output.Color = o.color
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, from, nil
}

func runConvert(cmd *cobra.Command, opts *convertOptions) error {
	switch opts.format {
	case "", config.FormatText, config.FormatJSON:
	default:
		return fmt.Errorf("unsupported format: %s (supported: text, json)", opts.format)
	}
	// Errors from here on are not usage errors.
	cmd.SilenceUsage = true

	cfg, from, err := opts.loadSettings()
	if err != nil {
		return err
	}

	logger := logging.NewWithWriter(cfg.Logging.Level, cmd.ErrOrStderr()).With("run_id", uuid.NewString())
	logger.Debug("configuration loaded", "source", from)

	ctx := cmd.Context()
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	srcOpts := source.Options{
		Path:         opts.file,
		Project:      opts.project,
		Ref:          opts.ref,
		WithIncludes: opts.withIncludes,
		Logger:       logger,
	}
	if opts.project != "" || opts.withIncludes {
		gl, err := newGitLabClient(cfg)
		if err != nil {
			return err
		}
		srcOpts.GitLab = gl
	}
	doc, err := source.Load(ctx, srcOpts)
	if err != nil {
		return err
	}

	model := opts.model
	if model == "" {
		model, err = cfg.Model(cfg.Provider, opts.quick)
		if err != nil {
			return err
		}
	}
	logger.Debug("model selected", "provider", cfg.Provider, "model", model, "mode", opts.mode())

	client, release, err := newChatClient(ctx, cfg, cfg.Provider)
	if err != nil {
		return fmt.Errorf("creating %s client: %w", cfg.Provider, err)
	}
	defer release()

	metered := pricing.Meter(client, cfg.PriceTable(), func(model string) {
		logger.Warn("no price known for model, cost reported as zero", "model", model)
	})

	out := renderer.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), renderer.Options{
		Format:    cfg.Output.Format,
		Color:     cfg.Output.Color,
		ShowUsage: opts.showUsage,
	})

	conv := converter.New(metered,
		converter.Options{Model: model, Mode: opts.mode()},
		converter.WithProgress(progress.New(cmd.ErrOrStderr(), renderer.IsTerminal(cmd.ErrOrStderr()))),
		converter.WithReporter(out),
		converter.WithLogger(logger),
	)

	result, err := conv.Run(ctx, doc.Text)
	if err != nil {
		return err
	}

	text := workflow.Extract(result.Output)
	summary, warnings := workflow.Check(text)
	for _, w := range warnings {
		logger.Debug("workflow check", "warning", w)
	}

	return out.Finish(renderer.Report{
		Source:   doc.Name,
		Includes: doc.Includes,
		Provider: string(cfg.Provider),
		Result:   result,
		Workflow: text,
		Summary:  &summary,
		Warnings: warnings,
	})
}

func newGitLabClient(cfg *config.Config) (*gitlab.Client, error) {
	var token string
	if cfg.GitLab.TokenEnv != "" {
		token = os.Getenv(cfg.GitLab.TokenEnv)
	}
	return gitlab.NewClient(gitlab.Config{BaseURL: cfg.GitLab.BaseURL, Token: token})
}
