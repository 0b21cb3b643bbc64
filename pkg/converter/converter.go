// Package converter drives the fixed prompt pipeline that turns a GitLab CI
// file into a GitHub Actions workflow: plan, convert and, in thorough mode,
// critique and apply. Stages run strictly in order; each stage's reply is
// embedded in the next stage's prompt.
package converter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
	"github.com/wonderfulspam/actions-smith/pkg/logging"
)

// Sampling parameters shared by every stage.
const (
	Temperature float32 = 0.7
	TopP        float32 = 1.0
)

// Progress shows an indicator while fn runs. Implementations must stop the
// indicator before returning, whatever fn does.
type Progress interface {
	Track(ctx context.Context, label string, fn func(context.Context) error) error
}

// Reporter receives each stage's result as soon as it is available.
type Reporter interface {
	StageDone(result StageResult) error
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    Stage         `json:"stage"`
	Text     string        `json:"text"`
	Model    string        `json:"model"`
	Usage    llm.Usage     `json:"usage"`
	Duration time.Duration `json:"duration_ns"`
}

// Totals accumulates usage across the stages of one run.
type Totals struct {
	Calls  int     `json:"calls"`
	Tokens int     `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// Add folds one response's usage into the totals.
func (t *Totals) Add(u llm.Usage) {
	t.Calls++
	t.Tokens += u.Tokens()
	t.Cost += u.Cost
}

// String formats the totals the way they are printed at the end of a run.
func (t Totals) String() string {
	return fmt.Sprintf("Total tokens: %d\nTotal cost: $%s", t.Tokens, llm.FormatCost(t.Cost))
}

// Result is the outcome of a complete run.
type Result struct {
	Mode   Mode          `json:"mode"`
	Model  string        `json:"model"`
	Stages []StageResult `json:"stages"`
	Totals Totals        `json:"totals"`
	// Output is the final workflow text: the convert reply in standard
	// mode, the apply reply in thorough mode.
	Output string `json:"output"`
}

// Options configures a Converter.
type Options struct {
	Model string
	Mode  Mode
}

// Converter runs the prompt pipeline against a chat client.
type Converter struct {
	client   llm.Client
	opts     Options
	progress Progress
	reporter Reporter
	logger   *logging.Logger
}

// Option customises a Converter.
type Option func(*Converter)

// WithProgress sets the indicator shown around each model call.
func WithProgress(p Progress) Option {
	return func(c *Converter) {
		if p != nil {
			c.progress = p
		}
	}
}

// WithReporter sets the receiver of stage results.
func WithReporter(r Reporter) Option {
	return func(c *Converter) {
		if r != nil {
			c.reporter = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *logging.Logger) Option {
	return func(c *Converter) {
		if l != nil {
			c.logger = l
		}
	}
}

// New returns a Converter. A nil client panics, an empty mode means
// ModeStandard.
func New(client llm.Client, opts Options, options ...Option) *Converter {
	if client == nil {
		panic("converter: chat client cannot be nil")
	}
	if opts.Mode == "" {
		opts.Mode = ModeStandard
	}

	c := &Converter{
		client:   client,
		opts:     opts,
		progress: noProgress{},
		reporter: noReporter{},
		logger:   logging.Discard(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Run executes every stage of the configured mode against source. A failure
// at any stage aborts the run; the partial result is returned alongside the
// error so callers can inspect what already completed.
func (c *Converter) Run(ctx context.Context, source string) (*Result, error) {
	if c.opts.Model == "" {
		return nil, errors.New("converter: model is required")
	}

	result := &Result{Mode: c.opts.Mode, Model: c.opts.Model}
	in := Inputs{Source: source}

	for _, stage := range c.opts.Mode.Stages() {
		sr, err := c.runStage(ctx, stage, in)
		if err != nil {
			return result, fmt.Errorf("%s stage: %w", stage, err)
		}

		switch stage {
		case StagePlan:
			in.Plan = sr.Text
		case StageConvert:
			in.Converted = sr.Text
			result.Output = sr.Text
		case StageCritique:
			in.Critique = sr.Text
		case StageApply:
			result.Output = sr.Text
		}

		result.Stages = append(result.Stages, sr)
		result.Totals.Add(sr.Usage)

		if err := c.reporter.StageDone(sr); err != nil {
			return result, fmt.Errorf("reporting %s stage: %w", stage, err)
		}
	}

	c.logger.Debug("conversion complete",
		"mode", c.opts.Mode,
		"calls", result.Totals.Calls,
		"tokens", result.Totals.Tokens,
		"cost", result.Totals.Cost)

	return result, nil
}

func (c *Converter) runStage(ctx context.Context, stage Stage, in Inputs) (StageResult, error) {
	messages, err := stage.Messages(in)
	if err != nil {
		return StageResult{}, err
	}

	req := llm.Request{
		Model:       c.opts.Model,
		Messages:    messages,
		Temperature: Temperature,
		TopP:        TopP,
	}

	var resp *llm.Response
	start := time.Now()
	err = c.progress.Track(ctx, stage.Activity(), func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.client.Chat(ctx, req)
		return callErr
	})
	elapsed := time.Since(start)
	if err != nil {
		return StageResult{}, err
	}
	if resp == nil {
		return StageResult{}, llm.ErrEmptyResponse
	}

	model := resp.Model
	if model == "" {
		model = c.opts.Model
	}

	c.logger.Debug("stage complete",
		"stage", stage,
		"model", model,
		"duration", elapsed.Round(time.Millisecond),
		"tokens", resp.Usage.Tokens(),
		"cost", resp.Usage.Cost)

	return StageResult{
		Stage:    stage,
		Text:     resp.Text,
		Model:    model,
		Usage:    resp.Usage,
		Duration: elapsed,
	}, nil
}

type noProgress struct{}

func (noProgress) Track(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

type noReporter struct{}

func (noReporter) StageDone(StageResult) error { return nil }
