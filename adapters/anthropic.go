package adapters

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is the messages model used when none is configured
const DefaultAnthropicModel = "claude-3-5-haiku-latest"

const anthropicMaxTokens = 64

// anthropicMessages is the subset of the SDK's message service we call
type anthropicMessages interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

// AnthropicClassifier sends each prompt as a single user message to the Anthropic messages API
type AnthropicClassifier struct {
	messages anthropicMessages
	model    string
}

// NewAnthropicClassifier creates a classifier using the given API key, or ANTHROPIC_API_KEY when nil
func NewAnthropicClassifier(apiKey *string, opts ClientOptions) (*AnthropicClassifier, error) {
	key, err := loadEnvVar(apiKey, "ANTHROPIC_API_KEY")
	if err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(*key),
		option.WithMaxRetries(opts.MaxRetries),
		option.WithHTTPClient(opts.httpClient()),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := anthropic.NewClient(reqOpts...)

	instance := AnthropicClassifier{
		messages: &client.Messages,
		model:    DefaultAnthropicModel,
	}
	if opts.Model != "" {
		instance.model = opts.Model
	}

	return &instance, nil
}

// Model returns the model identifier sent with every request
func (c *AnthropicClassifier) Model() string {
	return c.model
}

// Classify returns the concatenated text blocks of the reply
func (c *AnthropicClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API error: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no response from anthropic")
	}

	return sb.String(), nil
}
