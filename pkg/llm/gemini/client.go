// Package gemini implements llm.Client with Google's Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
)

// Client implements llm.Client using Gemini.
type Client struct {
	client *genai.Client
}

// New creates a Gemini client authenticated with apiKey.
func New(ctx context.Context, apiKey string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini: %w: api key is empty", llm.ErrNotConfigured)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: failed to create client: %w", err)
	}
	return &Client{client: client}, nil
}

// Chat sends the conversation to Gemini. System messages become the
// model's system instruction; the last turn is sent, earlier turns are
// replayed as history.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	model := c.client.GenerativeModel(req.Model)
	model.SetTemperature(req.Temperature)
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}

	system, turns := llm.SplitSystem(req.Messages)
	if text := strings.Join(system, "\n\n"); strings.TrimSpace(text) != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(text))
	}
	if len(turns) == 0 {
		return nil, errors.New("gemini: at least one user message is required")
	}

	cs := model.StartChat()
	for _, msg := range turns[:len(turns)-1] {
		cs.History = append(cs.History, &genai.Content{
			Role:  historyRole(msg.Role),
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	last := turns[len(turns)-1]
	resp, err := cs.SendMessage(ctx, genai.Text(last.Content))
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", classify(err))
	}

	text, finish := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("gemini: %w", llm.ErrEmptyResponse)
	}

	out := &llm.Response{
		Text:         text,
		Model:        req.Model,
		FinishReason: finish,
	}
	if resp.UsageMetadata != nil {
		out.Usage = llm.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

func historyRole(role llm.Role) string {
	if role == llm.RoleAssistant {
		return "model"
	}
	return "user"
}

func extractText(resp *genai.GenerateContentResponse) (string, string) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", ""
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil {
		return "", candidate.FinishReason.String()
	}

	var b strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), candidate.FinishReason.String()
}

func classify(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", llm.ErrAuthFailed, err)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", llm.ErrRateLimited, err)
	default:
		return err
	}
}
