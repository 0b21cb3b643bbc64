package converter

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
	"github.com/wonderfulspam/actions-smith/pkg/llm/llmtest"
)

const sourceCI = `stages:
  - build
  - test

build:
  stage: build
  script:
    - make build
`

type recordingReporter struct {
	results []StageResult
	err     error
}

func (r *recordingReporter) StageDone(res StageResult) error {
	r.results = append(r.results, res)
	return r.err
}

type recordingProgress struct {
	labels []string
	active bool
}

func (p *recordingProgress) Track(ctx context.Context, label string, fn func(context.Context) error) error {
	p.labels = append(p.labels, label)
	p.active = true
	defer func() { p.active = false }()
	return fn(ctx)
}

func TestRunStandardMode(t *testing.T) {
	client := llmtest.Texts(llm.Usage{}, "PLAN", "CONVERTED")
	reporter := &recordingReporter{}

	result, err := New(client, Options{Model: "gpt-4-turbo-preview"}, WithReporter(reporter)).
		Run(context.Background(), sourceCI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.Calls() != 2 {
		t.Fatalf("expected 2 chat calls, got %d", client.Calls())
	}

	reqs := client.Requests()
	if reqs[0].Messages[1].Content != sourceCI {
		t.Errorf("plan stage should send the raw CI text")
	}
	convertUser := reqs[1].Messages[1].Content
	if !strings.Contains(convertUser, "<gitlab-ci-file>"+sourceCI+"</gitlab-ci-file>") {
		t.Errorf("convert stage should embed the source, got %q", convertUser)
	}
	if !strings.Contains(convertUser, "<plan-of-action>PLAN</plan-of-action>") {
		t.Errorf("convert stage should embed the plan, got %q", convertUser)
	}

	if result.Output != "CONVERTED" {
		t.Errorf("expected output CONVERTED, got %q", result.Output)
	}
	if result.Mode != ModeStandard {
		t.Errorf("expected standard mode, got %s", result.Mode)
	}

	if len(reporter.results) != 2 {
		t.Fatalf("expected 2 reported stages, got %d", len(reporter.results))
	}
	if reporter.results[1].Text != "CONVERTED" {
		t.Errorf("last reported text should be the convert reply, got %q", reporter.results[1].Text)
	}
}

func TestRunThoroughMode(t *testing.T) {
	client := llmtest.Texts(llm.Usage{}, "PLAN", "CONVERTED", "CRITIQUE", "REVISED")
	reporter := &recordingReporter{}

	result, err := New(client, Options{Model: "m", Mode: ModeThorough}, WithReporter(reporter)).
		Run(context.Background(), sourceCI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if client.Calls() != 4 {
		t.Fatalf("expected 4 chat calls, got %d", client.Calls())
	}

	wantStages := []Stage{StagePlan, StageConvert, StageCritique, StageApply}
	for i, res := range reporter.results {
		if res.Stage != wantStages[i] {
			t.Errorf("stage %d: expected %s, got %s", i, wantStages[i], res.Stage)
		}
	}

	reqs := client.Requests()
	critiqueUser := reqs[2].Messages[1].Content
	if !strings.Contains(critiqueUser, "<converted-github-action>CONVERTED</converted-github-action>") {
		t.Errorf("critique stage should embed the converted file, got %q", critiqueUser)
	}

	applyUser := reqs[3].Messages[1].Content
	if !strings.Contains(applyUser, "<converted-github-action>CONVERTED</converted-github-action>") {
		t.Errorf("apply stage should embed the converted file, got %q", applyUser)
	}
	if !strings.Contains(applyUser, "<critique>CRITIQUE</critique>") {
		t.Errorf("apply stage should embed the critique separately, got %q", applyUser)
	}

	if result.Output != "REVISED" {
		t.Errorf("expected output REVISED, got %q", result.Output)
	}
}

func TestRunUsesFixedSamplingAndSystemFirst(t *testing.T) {
	client := llmtest.Texts(llm.Usage{}, "a", "b", "c", "d")

	if _, err := New(client, Options{Model: "gpt-3.5-turbo-0125", Mode: ModeThorough}).
		Run(context.Background(), sourceCI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i, req := range client.Requests() {
		if req.Model != "gpt-3.5-turbo-0125" {
			t.Errorf("request %d: expected quick model, got %s", i, req.Model)
		}
		if req.Temperature != 0.7 || req.TopP != 1.0 {
			t.Errorf("request %d: expected temperature 0.7 and top_p 1.0, got %v/%v", i, req.Temperature, req.TopP)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != llm.RoleSystem || req.Messages[1].Role != llm.RoleUser {
			t.Errorf("request %d: expected [system, user] messages, got %+v", i, req.Messages)
		}
	}
}

func TestRunAccumulatesTotals(t *testing.T) {
	usages := []llm.Usage{
		{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150, Cost: 0.0031},
		{PromptTokens: 300, CompletionTokens: 200, TotalTokens: 500, Cost: 0.0093},
		{PromptTokens: 400, CompletionTokens: 120, TotalTokens: 520, Cost: 0.0077},
		{PromptTokens: 600, CompletionTokens: 210, TotalTokens: 810, Cost: 0.0121},
	}
	replies := make([]llmtest.Reply, 0, len(usages))
	for _, u := range usages {
		replies = append(replies, llmtest.Reply{Response: &llm.Response{Text: "x", Usage: u}})
	}

	result, err := New(llmtest.New(replies...), Options{Model: "m", Mode: ModeThorough}).
		Run(context.Background(), sourceCI)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantTokens := 0
	wantCost := 0.0
	for _, u := range usages {
		wantTokens += u.TotalTokens
		wantCost += u.Cost
	}

	if result.Totals.Calls != 4 {
		t.Errorf("expected 4 calls, got %d", result.Totals.Calls)
	}
	if result.Totals.Tokens != wantTokens {
		t.Errorf("expected %d tokens, got %d", wantTokens, result.Totals.Tokens)
	}
	if math.Abs(result.Totals.Cost-wantCost) > 1e-12 {
		t.Errorf("expected cost %v, got %v", wantCost, result.Totals.Cost)
	}
}

func TestRunAbortsOnStageError(t *testing.T) {
	client := llmtest.New(
		llmtest.Reply{Response: &llm.Response{Text: "PLAN"}},
		llmtest.Reply{Err: llm.ErrRateLimited},
	)
	reporter := &recordingReporter{}

	result, err := New(client, Options{Model: "m", Mode: ModeThorough}, WithReporter(reporter)).
		Run(context.Background(), sourceCI)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, llm.ErrRateLimited) {
		t.Errorf("expected rate limit error in chain, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "convert stage:") {
		t.Errorf("expected error to name the stage, got %q", err)
	}
	if client.Calls() != 2 {
		t.Errorf("expected the run to stop after 2 calls, got %d", client.Calls())
	}
	if len(reporter.results) != 1 || len(result.Stages) != 1 {
		t.Errorf("expected only the plan stage to complete")
	}
}

func TestRunReporterErrorStopsRun(t *testing.T) {
	client := llmtest.Texts(llm.Usage{}, "PLAN", "CONVERTED")
	reporter := &recordingReporter{err: errors.New("stdout closed")}

	_, err := New(client, Options{Model: "m"}, WithReporter(reporter)).Run(context.Background(), sourceCI)
	if err == nil {
		t.Fatal("expected reporter error")
	}
	if client.Calls() != 1 {
		t.Errorf("expected 1 call before the reporter failed, got %d", client.Calls())
	}
}

func TestRunTracksProgressPerStage(t *testing.T) {
	client := llmtest.Texts(llm.Usage{}, "a", "b", "c", "d")
	progress := &recordingProgress{}

	if _, err := New(client, Options{Model: "m", Mode: ModeThorough}, WithProgress(progress)).
		Run(context.Background(), sourceCI); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(progress.labels) != 4 {
		t.Fatalf("expected 4 tracked calls, got %d", len(progress.labels))
	}
	if progress.labels[0] != StagePlan.Activity() || progress.labels[3] != StageApply.Activity() {
		t.Errorf("unexpected labels: %v", progress.labels)
	}
	if progress.active {
		t.Error("progress indicator left running")
	}
}

func TestRunRequiresModel(t *testing.T) {
	client := llmtest.New()
	if _, err := New(client, Options{}).Run(context.Background(), sourceCI); err == nil {
		t.Fatal("expected error for missing model")
	}
	if client.Calls() != 0 {
		t.Errorf("expected no calls, got %d", client.Calls())
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := llmtest.Texts(llm.Usage{}, "PLAN", "CONVERTED")
	_, err := New(client, Options{Model: "m"}).Run(ctx, sourceCI)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewPanicsOnNilClient(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil client")
		}
	}()
	New(nil, Options{Model: "m"})
}
