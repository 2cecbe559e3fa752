package adapters

import (
	"context"
	"errors"
	"testing"

	"github.com/FrenchMajesty/comment-labeler/adapters/openai"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests for unexported fields, run in-package so the wrapped clients can be swapped

type mockLLMOpenAIClient struct {
	chatCompletionFunc func(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error)
	lastRequest        openai.ChatCompletionRequest
}

func (m *mockLLMOpenAIClient) ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
	m.lastRequest = req
	if m.chatCompletionFunc != nil {
		return m.chatCompletionFunc(ctx, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockLLMOpenAIClient) SetBaseURL(baseUrl string) {}

func TestOpenAIClassifier_SingleUserMessage(t *testing.T) {
	content := "positive"
	mock := &mockLLMOpenAIClient{
		chatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
			return &openai.ChatCompletionResponse{
				Choices: []openai.ChatCompletionChoice{{Message: openai.ChatMessage{Content: &content}}},
			}, nil
		},
	}

	client := &OpenAIClassifier{client: mock, model: "gpt-3.5-turbo"}
	label, err := client.Classify(context.Background(), "template\nText: great video")

	require.NoError(t, err)
	assert.Equal(t, "positive", label)
	assert.Equal(t, "gpt-3.5-turbo", mock.lastRequest.Model)
	require.Len(t, mock.lastRequest.Messages, 1)
	assert.Equal(t, openai.MessageRoleUser, mock.lastRequest.Messages[0].Role)
	assert.Equal(t, "template\nText: great video", *mock.lastRequest.Messages[0].Content)
}

func TestOpenAIClassifier_Failures(t *testing.T) {
	tests := []struct {
		name string
		resp *openai.ChatCompletionResponse
		err  error
	}{
		{name: "API error", err: errors.New("quota exceeded")},
		{name: "empty choices", resp: &openai.ChatCompletionResponse{}},
		{name: "nil content", resp: &openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockLLMOpenAIClient{
				chatCompletionFunc: func(ctx context.Context, req openai.ChatCompletionRequest) (*openai.ChatCompletionResponse, error) {
					return tt.resp, tt.err
				},
			}

			client := &OpenAIClassifier{client: mock, model: DefaultOpenAIModel}
			label, err := client.Classify(context.Background(), "text")

			assert.Error(t, err)
			assert.Empty(t, label)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
			}
		})
	}
}

type mockAnthropicMessages struct {
	newFunc func(ctx context.Context, body anthropic.MessageNewParams) (*anthropic.Message, error)
	last    anthropic.MessageNewParams
}

func (m *mockAnthropicMessages) New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error) {
	m.last = body
	return m.newFunc(ctx, body)
}

func TestAnthropicClassifier_JoinsTextBlocks(t *testing.T) {
	mock := &mockAnthropicMessages{
		newFunc: func(ctx context.Context, body anthropic.MessageNewParams) (*anthropic.Message, error) {
			return &anthropic.Message{
				Content: []anthropic.ContentBlockUnion{
					{Type: "text", Text: "neu"},
					{Type: "text", Text: "tral"},
				},
			}, nil
		},
	}

	client := &AnthropicClassifier{messages: mock, model: "claude-test"}
	label, err := client.Classify(context.Background(), "prompt")

	require.NoError(t, err)
	assert.Equal(t, "neutral", label)
	assert.Equal(t, anthropic.Model("claude-test"), mock.last.Model)
	assert.Len(t, mock.last.Messages, 1)
}

func TestAnthropicClassifier_EmptyContent(t *testing.T) {
	mock := &mockAnthropicMessages{
		newFunc: func(ctx context.Context, body anthropic.MessageNewParams) (*anthropic.Message, error) {
			return &anthropic.Message{}, nil
		},
	}

	client := &AnthropicClassifier{messages: mock, model: DefaultAnthropicModel}
	_, err := client.Classify(context.Background(), "prompt")

	assert.EqualError(t, err, "no response from anthropic")
}

func TestLoadEnvVar(t *testing.T) {
	t.Setenv("LABELER_TEST_KEY", "from-env")

	explicit := "explicit"
	got, err := loadEnvVar(&explicit, "LABELER_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "explicit", *got)

	empty := ""
	got, err = loadEnvVar(&empty, "LABELER_TEST_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-env", *got)

	t.Setenv("LABELER_TEST_KEY", "")
	_, err = loadEnvVar(nil, "LABELER_TEST_KEY")
	assert.Error(t, err)
}
