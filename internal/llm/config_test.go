package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "claude-haiku", cfg.Anthropic.Model)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.InitialWait)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("PARLEY_LLM_PROVIDER", "anthropic")
	t.Setenv("PARLEY_ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("PARLEY_LLM_RETRY_MAX_ATTEMPTS", "5")
	t.Setenv("PARLEY_LLM_TIMEOUT", "45s")

	cfg, err := ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.Anthropic.APIKey)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.NoError(t, cfg.Validate())
}

func TestConfigFromEnvBadDuration(t *testing.T) {
	t.Setenv("PARLEY_LLM_TIMEOUT", "soon")
	_, err := ConfigFromEnv()
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"openai without key", func(c *Config) {}, true},
		{"openai with key", func(c *Config) { c.OpenAI.APIKey = "k" }, false},
		{"openai-compatible server without key", func(c *Config) { c.OpenAI.BaseURL = "http://localhost:11434/v1" }, false},
		{"gemini without key", func(c *Config) { c.Provider = "gemini" }, true},
		{"mock", func(c *Config) { c.Provider = "mock" }, false},
		{"unknown", func(c *Config) { c.Provider = "eliza" }, true},
		{"zero timeout", func(c *Config) { c.Provider = "mock"; c.Timeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewProviderMockAnswersOffline(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Provider = "mock"
	p, err := NewProvider(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, "mock", p.ModelID())

	ctx := WithPurpose(context.Background(), PurposeEvaluate)
	resp, err := p.Generate(ctx, Request{})
	require.NoError(t, err)
	assert.Contains(t, resp.Text(), "|")
}
