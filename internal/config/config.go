// Package config loads application settings for the labeler CLI and server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	labeler "github.com/FrenchMajesty/comment-labeler"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config holds all labeler settings.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Prompt  PromptConfig  `yaml:"prompt"`
	Input   InputConfig   `yaml:"input"`
	Output  OutputConfig  `yaml:"output"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LLMConfig configures the classification provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`

	// Timeout bounds each call, e.g. "30s". Empty means no timeout.
	Timeout string `yaml:"timeout"`

	// MaxRetries enables transport retries inside the client. Any value above
	// zero departs from one call per row; keep it at 0 for single-call runs.
	MaxRetries int `yaml:"max_retries"`

	DumpRequests bool   `yaml:"dump_requests"`
	DumpDir      string `yaml:"dump_dir"`
}

// PromptConfig holds the instruction template.
type PromptConfig struct {
	Template string `yaml:"template"`
}

// InputConfig selects what to read from uploaded files.
type InputConfig struct {
	Sheet string `yaml:"sheet"`
}

// OutputConfig controls where `labeler run` writes results.
type OutputConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures `labeler serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// MetricsConfig configures the Prometheus textfile export of `labeler run`.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   labeler.ProviderOpenAI,
			Model:      labeler.DefaultModel,
			MaxRetries: 0,
			DumpDir:    "debug_llm_requests",
		},
		Prompt: PromptConfig{
			Template: labeler.DefaultTemplate,
		},
		Output: OutputConfig{
			Path: labeler.DefaultOutputFilename,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			MaxUploadBytes: 32 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment overrides.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if provider := os.Getenv("LABELER_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if model := os.Getenv("LABELER_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if url := os.Getenv("LABELER_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if n, err := strconv.Atoi(os.Getenv("LABELER_MAX_RETRIES")); err == nil && n >= 0 {
		c.LLM.MaxRetries = n
	}

	if addr := os.Getenv("LABELER_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("LABELER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// ResolveAPIKey returns the credential for the current provider: LABELER_API_KEY,
// then the provider's own variable, then llm.api_key. Call it after every
// provider override so the key follows the provider.
func (c *Config) ResolveAPIKey() string {
	if key := os.Getenv("LABELER_API_KEY"); key != "" {
		return key
	}

	switch c.LLM.Provider {
	case labeler.ProviderOpenAI:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
	case labeler.ProviderAnthropic:
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			return key
		}
	}

	return c.LLM.APIKey
}

// GetLLMTimeout returns the per-call timeout as a duration.
// Zero, for an empty or invalid value, leaves the HTTP client without a timeout.
func (c *Config) GetLLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0
	}
	return d
}

// ValidProviders lists all supported classification providers.
var ValidProviders = []string{labeler.ProviderOpenAI, labeler.ProviderAnthropic}

// Validate validates the configuration. The API key is not checked here:
// the server takes it per request and a run reports it as a missing input.
func (c *Config) Validate() error {
	if !slices.Contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must not be negative, got %d", c.LLM.MaxRetries)
	}
	if c.LLM.Timeout != "" {
		if _, err := time.ParseDuration(c.LLM.Timeout); err != nil {
			return fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
		}
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}
	if _, err := zap.ParseAtomicLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid logging.level %q: %w", c.Logging.Level, err)
	}
	return nil
}

// LabelerConfig builds the settings of one run. The caller supplies the
// credential, file and prompt, which may come from flags or a request.
func (c *Config) LabelerConfig(apiKey string, file *labeler.File, prompt string) labeler.Config {
	model := c.LLM.Model
	if c.LLM.Provider != labeler.ProviderOpenAI && model == labeler.DefaultModel {
		model = ""
	}

	return labeler.Config{
		APIKey:       apiKey,
		File:         file,
		Prompt:       prompt,
		Provider:     c.LLM.Provider,
		Model:        model,
		BaseURL:      c.LLM.BaseURL,
		MaxRetries:   c.LLM.MaxRetries,
		Timeout:      c.GetLLMTimeout(),
		DumpRequests: c.LLM.DumpRequests,
		DumpDir:      c.LLM.DumpDir,
	}
}
