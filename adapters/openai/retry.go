package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/FrenchMajesty/comment-labeler/internal/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// isRetryableError determines if a failed attempt should be retried.
// Only consulted when RetryConfig allows more than one attempt.
func (c *OpenAIClient) isRetryableError(err error, statusCode int, responseBody []byte) bool {
	if err != nil {
		var apiErr *ChatCompletionError
		if errors.As(err, &apiErr) {
			return statusCode >= 500 || statusCode == http.StatusTooManyRequests
		}
		// Marshal and request-construction failures never succeed on a second try
		return statusCode == 0 && !errors.Is(err, errRequestBuild)
	}
	return false
}

var errRequestBuild = errors.New("request build failed")

// createAndRunRetryableRequest executes an HTTP request through internal/retry
func (c *OpenAIClient) createAndRunRetryableRequest(ctx context.Context, url string, requestBody any, apiName string) ([]byte, error) {
	opts := retry.Options{
		Config:       c.RetryConfig,
		ErrorChecker: c.isRetryableError,
		Logger:       c.logger().Sugar().Infof,
		APIName:      "OpenAI " + apiName,
	}

	return retry.Execute(ctx, opts, c.buildRetryableFn(ctx, url, requestBody, apiName))
}

// buildRetryableFn builds one attempt of the given request
func (c *OpenAIClient) buildRetryableFn(ctx context.Context, url string, requestBody any, apiName string) retry.Func[[]byte] {
	return func(attempt int) ([]byte, int, []byte, error) {
		body, err := json.Marshal(requestBody)
		if err != nil {
			return nil, 0, nil, fmt.Errorf("%w: failed to marshal %s request: %v", errRequestBuild, apiName, err)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, 0, nil, fmt.Errorf("%w: failed to create HTTP request: %v", errRequestBuild, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)
		httpReq.Header.Set("Content-Type", "application/json")

		httpClient := c.HTTPClient
		if httpClient == nil {
			httpClient = http.DefaultClient
		}

		resp, err := httpClient.Do(httpReq)
		if err != nil {
			return nil, 0, nil, err
		}
		defer resp.Body.Close()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, resp.StatusCode, nil, fmt.Errorf("failed to read %s response body: %w", apiName, err)
		}

		chatReq, ok := requestBody.(ChatCompletionRequest)
		if c.DumpRequests && ok {
			c.saveResponseToFile(chatReq, bodyBytes, resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, resp.StatusCode, bodyBytes, &ChatCompletionError{
				Message:    apiErrorMessage(apiName, resp.StatusCode, bodyBytes),
				StatusCode: resp.StatusCode,
				RawBody:    json.RawMessage(bodyBytes),
			}
		}

		return bodyBytes, resp.StatusCode, bodyBytes, nil
	}
}

// apiErrorMessage prefers the API's own error message when the body carries one
func apiErrorMessage(apiName string, statusCode int, body []byte) string {
	var errResp ChatCompletionResponseError
	if json.Unmarshal(body, &errResp) == nil && errResp.Error.Message != "" {
		return fmt.Sprintf("openai %s API error %d: %s", apiName, statusCode, errResp.Error.Message)
	}
	return fmt.Sprintf("openai %s API error %d", apiName, statusCode)
}

// saveResponseToFile writes the request/response pair under DumpDir/<model>/ for debugging
func (c *OpenAIClient) saveResponseToFile(req ChatCompletionRequest, bodyBytes []byte, statusCode int) {
	log := c.logger()

	dir := c.DumpDir
	if dir == "" {
		dir = DefaultDumpDir
	}
	modelDir := filepath.Join(dir, req.Model)
	if err := os.MkdirAll(modelDir, 0755); err != nil {
		log.Warn("failed to create dump directory", zap.String("dir", modelDir), zap.Error(err))
		return
	}

	var responseBody any
	if err := json.Unmarshal(bodyBytes, &responseBody); err != nil {
		responseBody = string(bodyBytes)
	}

	jsonData, err := json.MarshalIndent(map[string]any{
		"request":  req,
		"response": responseBody,
		"status":   statusCode,
	}, "", "  ")
	if err != nil {
		log.Warn("failed to marshal dump", zap.Error(err))
		return
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("openai_req_%s_%s.json", timestamp, uuid.New().String()[:8])
	path := filepath.Join(modelDir, filename)
	if err := os.WriteFile(path, jsonData, 0644); err != nil {
		log.Warn("failed to write dump", zap.String("path", path), zap.Error(err))
		return
	}

	log.Debug("dumped chat completion", zap.String("path", path), zap.Int("status", statusCode))
}
