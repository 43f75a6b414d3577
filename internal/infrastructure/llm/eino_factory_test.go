package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astro-persona-api/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "openai",
		FallbackChain:   []string{"openai", "deepseek", "unknown", "deepseek"},
		Providers: map[string]config.ProviderConfig{
			"openai":   {APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1", Model: "gpt-4o-mini", MaxTokens: 512, Temperature: 0.9, Timeout: time.Second},
			"deepseek": {APIKey: "", BaseURL: "http://127.0.0.1:1/v1", Model: "deepseek-chat"},
		},
	}}
}

func TestProviderChain(t *testing.T) {
	cfg := testConfig()
	f := NewEinoFactory(cfg)

	// deepseek 没有 api key，不参与轮换
	assert.Equal(t, []string{"openai"}, f.ProviderChain(""))
	assert.Equal(t, []string{"deepseek", "openai"}, f.ProviderChain("deepseek"))

	ds := cfg.LLM.Providers["deepseek"]
	ds.APIKey = "sk-ds"
	cfg.LLM.Providers["deepseek"] = ds
	assert.Equal(t, []string{"openai", "deepseek"}, f.ProviderChain(""))
	assert.Equal(t, "deepseek-chat", f.ModelName("deepseek"))
	assert.Equal(t, "gpt-4o-mini", f.ModelName(""))
}

func TestGetCachesModels(t *testing.T) {
	f := NewEinoFactory(testConfig())

	m1, err := f.Get(context.Background(), "")
	require.NoError(t, err)
	m2, err := f.Get(context.Background(), "openai")
	require.NoError(t, err)
	assert.Same(t, m1, m2)
}

func TestGetRejectsUnknownOrUnconfigured(t *testing.T) {
	f := NewEinoFactory(testConfig())

	_, err := f.Get(context.Background(), "anthropic")
	assert.ErrorContains(t, err, "not found")

	_, err = f.Get(context.Background(), "deepseek")
	assert.ErrorContains(t, err, "no api key")
}
