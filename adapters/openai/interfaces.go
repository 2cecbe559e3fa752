package openai

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/FrenchMajesty/comment-labeler/internal/retry"
	"go.uber.org/zap"
)

// OpenAIClient is a minimal client for the OpenAI Chat API
type OpenAIClient struct {
	APIKey       string
	BaseURL      string
	HTTPClient   *http.Client
	RetryConfig  retry.Config
	DumpRequests bool
	DumpDir      string
	Logger       *zap.Logger
}

type LanguageModelClient interface {
	ChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error)
	SetBaseURL(baseUrl string)
}

// ChatCompletionRequest is the request body for the chat completion endpoint
type ChatCompletionRequest struct {
	Model               string        `json:"model"`
	User                string        `json:"user,omitempty"`
	Messages            []ChatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
	Temperature         float32       `json:"temperature,omitempty"`
}

type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// The response from the chat completion endpoint
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   ChatCompletionUsage    `json:"usage"`
}

type ChatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
	MessageRoleSystem    MessageRole = "system"
)

type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content *string     `json:"content"`
}

type ChatError struct {
	Code    any    `json:"code"`
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ChatCompletionResponseError struct {
	Error ChatError `json:"error"`
}

// ChatCompletionError wraps API and decoding failures with the raw response body
type ChatCompletionError struct {
	Message    string          `json:"message"`
	StatusCode int             `json:"status_code,omitempty"`
	RawBody    json.RawMessage `json:"raw_body,omitempty"`
}

func (e *ChatCompletionError) Error() string {
	return e.Message
}

// GetRawResponseBody returns the raw response body if available
func (e *ChatCompletionError) GetRawResponseBody() json.RawMessage {
	return e.RawBody
}
