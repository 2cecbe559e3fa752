package adapters

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// ClientOptions configures a provider-backed classification client
type ClientOptions struct {
	// Model is sent with every request. Empty uses the provider default.
	Model string

	// BaseURL points the client at a compatible endpoint. Empty uses the provider default.
	BaseURL string

	// MaxRetries is the number of transport retries after a failed call. Zero disables retries.
	MaxRetries int

	// Timeout bounds each HTTP call. Zero leaves the client library default in place.
	Timeout time.Duration

	// DumpRequests writes every request/response pair under DumpDir (OpenAI only)
	DumpRequests bool
	DumpDir      string

	Logger *zap.Logger
}

func (o ClientOptions) httpClient() *http.Client {
	if o.Timeout <= 0 {
		return http.DefaultClient
	}
	return &http.Client{Timeout: o.Timeout}
}

func (o ClientOptions) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// loadEnvVar loads an environment variable into a pointer if no value is provided
func loadEnvVar(target *string, envKey string) (*string, error) {
	if target == nil || *target == "" {
		envVar := os.Getenv(envKey)
		if envVar == "" {
			return nil, fmt.Errorf("%s environment variable not set and no value provided", envKey)
		}
		return &envVar, nil
	}
	return target, nil
}
