package llm

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all LLM provider configuration. Every field is read from a
// PARLEY_-prefixed environment variable.
type Config struct {
	// Provider selects the backend: "openai", "anthropic", "gemini" or "mock".
	Provider string `env:"PARLEY_LLM_PROVIDER" envDefault:"openai"`

	OpenAI    OpenAIConfig    `envPrefix:"PARLEY_OPENAI_"`
	Anthropic AnthropicConfig `envPrefix:"PARLEY_ANTHROPIC_"`
	Gemini    GeminiConfig    `envPrefix:"PARLEY_GEMINI_"`
	Retry     RetryConfig     `envPrefix:"PARLEY_LLM_RETRY_"`

	// Timeout bounds a single gateway call including retries.
	Timeout time.Duration `env:"PARLEY_LLM_TIMEOUT" envDefault:"30s"`
}

// OpenAIConfig holds configuration for OpenAI and compatible APIs
// (Ollama, OpenRouter, vLLM) reached through BaseURL.
type OpenAIConfig struct {
	APIKey  string `env:"API_KEY"`
	Model   string `env:"MODEL" envDefault:"gpt-4o-mini"`
	BaseURL string `env:"BASE_URL"`
}

// AnthropicConfig holds Anthropic-specific configuration.
type AnthropicConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"claude-haiku"`
}

// GeminiConfig holds Gemini-specific configuration.
type GeminiConfig struct {
	APIKey string `env:"API_KEY"`
	Model  string `env:"MODEL" envDefault:"gemini-flash"`
}

// RetryConfig configures retry behavior for transient failures.
type RetryConfig struct {
	MaxAttempts int           `env:"MAX_ATTEMPTS" envDefault:"3"`
	InitialWait time.Duration `env:"INITIAL_WAIT" envDefault:"1s"`
	MaxWait     time.Duration `env:"MAX_WAIT" envDefault:"10s"`
	Multiplier  float64       `env:"MULTIPLIER" envDefault:"2"`
}

// DefaultConfig returns the configuration used when no variables are set.
func DefaultConfig() Config {
	var cfg Config
	// Parsing against an empty environment only applies envDefault tags and
	// cannot fail for these field types.
	_ = env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}})
	return cfg
}

// ConfigFromEnv builds a Config from the process environment, falling back
// to defaults for unset values.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse LLM env: %w", err)
	}
	return cfg, nil
}

// Validate checks that the selected provider has its required API key set.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		// Local OpenAI-compatible servers accept any key.
		if c.OpenAI.APIKey == "" && c.OpenAI.BaseURL == "" {
			return fmt.Errorf("PARLEY_OPENAI_API_KEY is required for the openai provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("PARLEY_ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("PARLEY_GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("PARLEY_LLM_TIMEOUT must be positive, got %s", c.Timeout)
	}
	return nil
}
