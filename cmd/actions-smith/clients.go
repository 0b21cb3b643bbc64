package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/wonderfulspam/actions-smith/pkg/config"
	"github.com/wonderfulspam/actions-smith/pkg/llm"
	"github.com/wonderfulspam/actions-smith/pkg/llm/bedrock"
	"github.com/wonderfulspam/actions-smith/pkg/llm/gemini"
	"github.com/wonderfulspam/actions-smith/pkg/llm/openai"
)

// newChatClient builds the chat client for provider. The returned func
// releases it. Tests swap in a scripted client.
var newChatClient = func(ctx context.Context, cfg *config.Config, provider config.Provider) (llm.Client, func(), error) {
	switch provider {
	case config.ProviderOpenAI:
		client, err := openai.New(openai.Config{
			APIKey:       os.Getenv(cfg.OpenAI.APIKeyEnv),
			BaseURL:      cfg.OpenAI.BaseURL,
			Organization: cfg.OpenAI.Organization,
		})
		if err != nil {
			return nil, nil, keyHint(err, cfg.OpenAI.APIKeyEnv)
		}
		return client, func() {}, nil

	case config.ProviderGemini:
		client, err := gemini.New(ctx, os.Getenv(cfg.Gemini.APIKeyEnv))
		if err != nil {
			return nil, nil, keyHint(err, cfg.Gemini.APIKeyEnv)
		}
		return client, func() { _ = client.Close() }, nil

	case config.ProviderBedrock:
		client, err := bedrock.New(ctx, bedrock.Config{
			Region:  cfg.Bedrock.Region,
			Profile: cfg.Bedrock.Profile,
		})
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("%w %q", config.ErrUnknownProvider, provider)
	}
}

func keyHint(err error, env string) error {
	if errors.Is(err, llm.ErrNotConfigured) {
		return fmt.Errorf("%w (set %s)", err, env)
	}
	return err
}
