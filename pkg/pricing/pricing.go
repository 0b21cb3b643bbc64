// Package pricing estimates the dollar cost of chat responses from their
// token usage.
package pricing

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
)

// Price is the USD cost per million tokens.
type Price struct {
	Input  float64 `json:"input" yaml:"input" toml:"input"`
	Output float64 `json:"output" yaml:"output" toml:"output"`
}

// Cost returns the cost of the given token counts.
func (p Price) Cost(promptTokens, completionTokens int) float64 {
	return (float64(promptTokens)*p.Input + float64(completionTokens)*p.Output) / 1_000_000
}

// defaultPrices are list prices at the time of writing, per million tokens.
var defaultPrices = map[string]Price{
	// OpenAI
	"gpt-3.5-turbo":       {Input: 0.50, Output: 1.50},
	"gpt-3.5-turbo-0125":  {Input: 0.50, Output: 1.50},
	"gpt-4":               {Input: 30.00, Output: 60.00},
	"gpt-4-turbo":         {Input: 10.00, Output: 30.00},
	"gpt-4-turbo-preview": {Input: 10.00, Output: 30.00},
	"gpt-4o":              {Input: 2.50, Output: 10.00},
	"gpt-4o-mini":         {Input: 0.15, Output: 0.60},

	// Google
	"gemini-2.5-pro":   {Input: 1.25, Output: 10.00},
	"gemini-2.5-flash": {Input: 0.30, Output: 2.50},

	// Bedrock
	"anthropic.claude-3-haiku":    {Input: 0.25, Output: 1.25},
	"anthropic.claude-3-5-sonnet": {Input: 3.00, Output: 15.00},
	"anthropic.claude-3-sonnet":   {Input: 3.00, Output: 15.00},
	"anthropic.claude-3-opus":     {Input: 15.00, Output: 75.00},
}

// Table maps model identifiers to prices. Lookups fall back to the longest
// known prefix so dated model versions share their family's price.
type Table struct {
	mu     sync.RWMutex
	prices map[string]Price
}

// Default returns a table seeded with the built-in prices.
func Default() *Table {
	t := &Table{prices: make(map[string]Price, len(defaultPrices))}
	for model, price := range defaultPrices {
		t.prices[model] = price
	}
	return t
}

// Set adds or replaces the price of a model.
func (t *Table) Set(model string, price Price) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.prices[model] = price
}

// Lookup returns the price of model, trying an exact match first and then
// the longest matching prefix.
func (t *Table) Lookup(model string) (Price, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if price, ok := t.prices[model]; ok {
		return price, true
	}

	best := ""
	for known := range t.prices {
		if strings.HasPrefix(model, known) && len(known) > len(best) {
			best = known
		}
	}
	if best == "" {
		return Price{}, false
	}
	return t.prices[best], true
}

// Models returns the known model identifiers in sorted order.
func (t *Table) Models() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	models := make([]string, 0, len(t.prices))
	for model := range t.prices {
		models = append(models, model)
	}
	sort.Strings(models)
	return models
}

// Cost returns the cost of usage for model and whether the model was priced.
func (t *Table) Cost(model string, usage llm.Usage) (float64, bool) {
	price, ok := t.Lookup(model)
	if !ok {
		return 0, false
	}
	return price.Cost(usage.PromptTokens, usage.CompletionTokens), true
}

// UnpricedFunc is notified when a response comes from a model with no price.
type UnpricedFunc func(model string)

// Meter wraps client so every response carries a cost estimate. The request
// model is used when the response does not name the model that answered.
func Meter(client llm.Client, table *Table, onUnpriced UnpricedFunc) llm.Client {
	return llm.ClientFunc(func(ctx context.Context, req llm.Request) (*llm.Response, error) {
		resp, err := client.Chat(ctx, req)
		if err != nil {
			return nil, err
		}

		cost, ok := table.Cost(req.Model, resp.Usage)
		if !ok && resp.Model != "" {
			cost, ok = table.Cost(resp.Model, resp.Usage)
		}
		if !ok && onUnpriced != nil {
			onUnpriced(req.Model)
		}

		metered := *resp
		metered.Usage.Cost = cost
		return &metered, nil
	})
}
