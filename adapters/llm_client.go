package adapters

import (
	"context"
	"fmt"

	"github.com/FrenchMajesty/comment-labeler/adapters/openai"
)

// DefaultOpenAIModel is the chat model used when none is configured
const DefaultOpenAIModel = "gpt-3.5-turbo"

// OpenAIClassifier sends each prompt as a single user message to the OpenAI chat API
type OpenAIClassifier struct {
	client openai.LanguageModelClient
	model  string
}

// NewOpenAIClassifier creates a classifier using the given API key, or OPENAI_API_KEY when nil
func NewOpenAIClassifier(apiKey *string, opts ClientOptions) (*OpenAIClassifier, error) {
	key, err := loadEnvVar(apiKey, "OPENAI_API_KEY")
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(*key)
	client.HTTPClient = opts.httpClient()
	client.RetryConfig = client.RetryConfig.WithMaxRetries(opts.MaxRetries)
	client.DumpRequests = opts.DumpRequests
	if opts.DumpDir != "" {
		client.DumpDir = opts.DumpDir
	}
	client.Logger = opts.logger()
	client.SetBaseURL(opts.BaseURL)

	instance := OpenAIClassifier{
		client: client,
		model:  DefaultOpenAIModel,
	}
	if opts.Model != "" {
		instance.model = opts.Model
	}

	return &instance, nil
}

// Model returns the model identifier sent with every request
func (c *OpenAIClassifier) Model() string {
	return c.model
}

// Classify returns the raw completion text for the prompt
func (c *OpenAIClassifier) Classify(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatMessage{
			{
				Role:    openai.MessageRoleUser,
				Content: &prompt,
			},
		},
	}

	resp, err := c.client.ChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to get LLM response: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == nil {
		return "", fmt.Errorf("no response from LLM")
	}

	return *resp.Choices[0].Message.Content, nil
}
