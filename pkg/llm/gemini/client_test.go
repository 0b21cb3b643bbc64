package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
)

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), "")
	if !errors.Is(err, llm.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestHistoryRole(t *testing.T) {
	if got := historyRole(llm.RoleAssistant); got != "model" {
		t.Errorf("assistant should map to model, got %q", got)
	}
	if got := historyRole(llm.RoleUser); got != "user" {
		t.Errorf("user should map to user, got %q", got)
	}
}

func TestExtractText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []genai.Part{genai.Text("on: push\n"), genai.Text("jobs: {}")},
			},
			FinishReason: genai.FinishReasonStop,
		}},
	}

	text, _ := extractText(resp)
	if text != "on: push\njobs: {}" {
		t.Errorf("unexpected text %q", text)
	}

	if text, _ := extractText(&genai.GenerateContentResponse{}); text != "" {
		t.Errorf("expected empty text for no candidates, got %q", text)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		code int
		want error
	}{
		{"throttled", http.StatusTooManyRequests, llm.ErrRateLimited},
		{"forbidden", http.StatusForbidden, llm.ErrAuthFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify(fmt.Errorf("send: %w", &googleapi.Error{Code: tt.code}))
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	plain := errors.New("boom")
	if got := classify(plain); got != plain {
		t.Errorf("unclassified errors should pass through, got %v", got)
	}
}
