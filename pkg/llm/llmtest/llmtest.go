// Package llmtest provides a scripted llm.Client for tests.
package llmtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
)

// Reply is one scripted outcome. Err takes precedence over Response.
type Reply struct {
	Response *llm.Response
	Err      error
}

// Client answers calls with scripted replies in order and records every
// request it receives.
type Client struct {
	mu       sync.Mutex
	replies  []Reply
	requests []llm.Request
}

// New returns a client that answers with the given replies in order.
func New(replies ...Reply) *Client {
	return &Client{replies: replies}
}

// Texts returns a client answering each call with the next text, each
// response carrying the given usage.
func Texts(usage llm.Usage, texts ...string) *Client {
	replies := make([]Reply, 0, len(texts))
	for _, text := range texts {
		replies = append(replies, Reply{Response: &llm.Response{Text: text, Usage: usage}})
	}
	return New(replies...)
}

// Chat implements llm.Client.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(c.replies) == 0 {
		return nil, fmt.Errorf("llmtest: unexpected call %d", len(c.requests))
	}

	reply := c.replies[0]
	c.replies = c.replies[1:]
	if reply.Err != nil {
		return nil, reply.Err
	}
	resp := *reply.Response
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// Requests returns a copy of the recorded requests.
func (c *Client) Requests() []llm.Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]llm.Request(nil), c.requests...)
}

// Calls returns the number of recorded requests.
func (c *Client) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}
