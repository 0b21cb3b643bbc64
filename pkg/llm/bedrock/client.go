// Package bedrock implements llm.Client with the AWS Bedrock Converse API.
package bedrock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/wonderfulspam/actions-smith/pkg/llm"
)

type converseAPI interface {
	Converse(ctx context.Context, params *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Config selects the AWS region and shared-config profile. Credentials
// come from the default AWS credential chain.
type Config struct {
	Region  string
	Profile string
}

// Client implements llm.Client using Bedrock.
type Client struct {
	api converseAPI
}

// New loads the AWS configuration and returns a Bedrock client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	return newWithAPI(bedrockruntime.NewFromConfig(awsCfg)), nil
}

func newWithAPI(api converseAPI) *Client {
	if api == nil {
		panic("bedrock: converse client cannot be nil")
	}
	return &Client{api: api}
}

// Chat sends one Converse request.
func (c *Client) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	system, turns := llm.SplitSystem(req.Messages)

	systemBlocks := make([]brtypes.SystemContentBlock, 0, len(system))
	for _, block := range system {
		if strings.TrimSpace(block) == "" {
			continue
		}
		systemBlocks = append(systemBlocks, &brtypes.SystemContentBlockMemberText{Value: block})
	}

	messages := make([]brtypes.Message, 0, len(turns))
	for _, msg := range turns {
		role := brtypes.ConversationRoleUser
		if msg.Role == llm.RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		messages = append(messages, brtypes.Message{
			Role:    role,
			Content: []brtypes.ContentBlock{&brtypes.ContentBlockMemberText{Value: msg.Content}},
		})
	}

	out, err := c.api.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId:  aws.String(req.Model),
		System:   systemBlocks,
		Messages: messages,
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(req.Temperature),
			TopP:        aws.Float32(req.TopP),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock: %w", classify(err))
	}

	text, err := extractText(out)
	if err != nil {
		return nil, err
	}

	resp := &llm.Response{
		Text:         text,
		Model:        req.Model,
		FinishReason: string(out.StopReason),
	}
	if out.Usage != nil {
		resp.Usage = llm.Usage{
			PromptTokens:     int(int32OrZero(out.Usage.InputTokens)),
			CompletionTokens: int(int32OrZero(out.Usage.OutputTokens)),
			TotalTokens:      int(int32OrZero(out.Usage.TotalTokens)),
		}
	}
	return resp, nil
}

func extractText(out *bedrockruntime.ConverseOutput) (string, error) {
	if out == nil {
		return "", fmt.Errorf("bedrock: %w: nil output", llm.ErrEmptyResponse)
	}
	msgOut, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("bedrock: %w: no message output", llm.ErrEmptyResponse)
	}

	var b strings.Builder
	for _, block := range msgOut.Value.Content {
		if textBlock, ok := block.(*brtypes.ContentBlockMemberText); ok {
			b.WriteString(textBlock.Value)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", fmt.Errorf("bedrock: %w: no text content blocks", llm.ErrEmptyResponse)
	}
	return b.String(), nil
}

func classify(err error) error {
	var throttled *brtypes.ThrottlingException
	var denied *brtypes.AccessDeniedException
	switch {
	case errors.As(err, &throttled):
		return fmt.Errorf("%w: %w", llm.ErrRateLimited, err)
	case errors.As(err, &denied):
		return fmt.Errorf("%w: %w", llm.ErrAuthFailed, err)
	default:
		return err
	}
}

func int32OrZero(v *int32) int32 {
	if v == nil {
		return 0
	}
	return *v
}
