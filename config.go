package labeler

import (
	"time"

	"github.com/FrenchMajesty/comment-labeler/adapters"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the chat model used for every row unless configured otherwise
	DefaultModel = adapters.DefaultOpenAIModel

	// DefaultOutputFilename is the name offered for the downloaded results
	DefaultOutputFilename = "sentiment_analysis_results.csv"

	// ErrorLabel replaces the label of any row whose classification call failed
	ErrorLabel = "Error"

	// MinColumns is the minimum width of an input file: ID and Comment
	MinColumns = 2
)

// Supported classification providers
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// ClientFactory builds the classification client for a run from its credential
type ClientFactory func(apiKey string, opts adapters.ClientOptions) (Classifier, error)

// Config holds everything one labeling run needs
type Config struct {
	// APIKey is the provider credential. Required.
	APIKey string

	// File is the uploaded spreadsheet. Required.
	File *File

	// Prompt is the instruction template prepended to every comment. Required, not blank.
	Prompt string

	// Provider selects the default client: "openai" (default) or "anthropic"
	Provider string

	// Model is sent with every request. Empty uses the provider default.
	Model   string
	BaseURL string

	// MaxRetries enables transport retries inside the client. Zero means every call is made once.
	MaxRetries int

	// Timeout bounds each client call. Zero leaves the HTTP client default.
	Timeout time.Duration

	DumpRequests bool
	DumpDir      string

	// NewClient overrides client construction. If nil, the provider adapter is used.
	NewClient ClientFactory

	// Reporter receives phase changes and per-row notifications. If nil, nothing is reported.
	Reporter Reporter

	// Logger is handed to the client adapters. If nil, a no-op logger is used.
	Logger *zap.Logger
}

// applyDefaults fills in default values for unset config fields
func (c *Config) applyDefaults() {
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}

	if c.Model == "" && c.Provider == ProviderOpenAI {
		c.Model = DefaultModel
	}

	if c.Reporter == nil {
		c.Reporter = nopReporter{}
	}

	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

func (c *Config) clientOptions() adapters.ClientOptions {
	return adapters.ClientOptions{
		Model:        c.Model,
		BaseURL:      c.BaseURL,
		MaxRetries:   c.MaxRetries,
		Timeout:      c.Timeout,
		DumpRequests: c.DumpRequests,
		DumpDir:      c.DumpDir,
		Logger:       c.Logger,
	}
}
