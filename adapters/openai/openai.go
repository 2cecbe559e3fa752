package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/FrenchMajesty/comment-labeler/internal/retry"
	"go.uber.org/zap"
)

const openaiBaseURL = "https://api.openai.com/v1"

// DefaultDumpDir is where request/response pairs are written when DumpRequests is set
const DefaultDumpDir = "debug_llm_requests"

// Creates a new OpenAIClient
func NewClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		APIKey:      apiKey,
		BaseURL:     openaiBaseURL,
		HTTPClient:  http.DefaultClient,
		RetryConfig: retry.DefaultConfig(),
		DumpDir:     DefaultDumpDir,
		Logger:      zap.NewNop(),
	}
}

var _ LanguageModelClient = (*OpenAIClient)(nil)

// Sends a chat completion request to OpenAI
func (c *OpenAIClient) ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	url := strings.TrimRight(c.BaseURL, "/") + "/chat/completions"

	bodyBytes, err := c.createAndRunRetryableRequest(ctx, url, req, "chat")
	if err != nil {
		return nil, err
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return nil, &ChatCompletionError{
			Message:    fmt.Sprintf("failed to parse chat completion response: %v", err),
			StatusCode: http.StatusOK,
			RawBody:    json.RawMessage(bodyBytes),
		}
	}

	return &chatResp, nil
}

// Sets the base URL for the OpenAI client
func (c *OpenAIClient) SetBaseURL(baseUrl string) {
	if baseUrl == "" {
		baseUrl = openaiBaseURL
	}
	c.BaseURL = baseUrl
}

func (c *OpenAIClient) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}
