// Package llm defines the chat-completion contract shared by every model
// provider: role-tagged messages in, generated text plus usage out.
package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Role tags a message with its speaker.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of an ordered chat request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System returns a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User returns a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Request is a single chat-completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float32
	TopP        float32
}

// Usage is the token and cost accounting of one response.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	Cost             float64 `json:"cost"`
}

// Tokens returns the total token count, deriving it from the prompt and
// completion counts when the provider did not report a total.
func (u Usage) Tokens() int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

// String formats usage the way it is printed after each stage.
func (u Usage) String() string {
	return fmt.Sprintf("Tokens: %d (prompt %d, completion %d) | Cost: $%s",
		u.Tokens(), u.PromptTokens, u.CompletionTokens, FormatCost(u.Cost))
}

// FormatCost prints a USD amount without rounding it to cents, so a sum of
// printed costs equals the printed sum. Float noise below 1e-10 is dropped.
func FormatCost(cost float64) string {
	return strconv.FormatFloat(math.Round(cost*1e10)/1e10, 'f', -1, 64)
}

// Response is the generated reply of one call.
type Response struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	FinishReason string `json:"finish_reason,omitempty"`
	Usage        Usage  `json:"usage"`
}

// Client performs one blocking chat-completion call per Chat invocation.
// Implementations do not retry; every failure is returned to the caller.
type Client interface {
	Chat(ctx context.Context, req Request) (*Response, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (*Response, error)

// Chat calls f.
func (f ClientFunc) Chat(ctx context.Context, req Request) (*Response, error) {
	return f(ctx, req)
}

var (
	// ErrNotConfigured indicates a provider is missing its credentials.
	ErrNotConfigured = errors.New("llm: provider not configured")

	// ErrAuthFailed indicates the provider rejected the credentials.
	ErrAuthFailed = errors.New("llm: authentication failed")

	// ErrRateLimited indicates the provider throttled the request.
	ErrRateLimited = errors.New("llm: rate limited")

	// ErrEmptyResponse indicates the provider answered without any text.
	ErrEmptyResponse = errors.New("llm: empty response")

	// ErrUnsupportedRole indicates a message role the provider cannot map.
	ErrUnsupportedRole = errors.New("llm: unsupported role")
)

// Validate checks the parts of a request every provider relies on.
func (r Request) Validate() error {
	if r.Model == "" {
		return errors.New("llm: model is required")
	}
	if len(r.Messages) == 0 {
		return errors.New("llm: at least one message is required")
	}
	for _, msg := range r.Messages {
		switch msg.Role {
		case RoleSystem, RoleUser, RoleAssistant:
		default:
			return fmt.Errorf("%w: %q", ErrUnsupportedRole, msg.Role)
		}
	}
	return nil
}

// SplitSystem separates system messages from the conversation turns, for
// providers that take the system prompt out of band.
func SplitSystem(msgs []Message) (system []string, turns []Message) {
	for _, msg := range msgs {
		if msg.Role == RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		turns = append(turns, msg)
	}
	return system, turns
}
