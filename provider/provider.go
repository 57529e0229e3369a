package provider

import (
	"errors"

	"github.com/wayde1122/chat-box-code/config"
	"github.com/wayde1122/chat-box-code/internal/agent/core"
	"github.com/wayde1122/chat-box-code/internal/agent/telemetry"
	openai_provider "github.com/wayde1122/chat-box-code/provider/openai"
)

// ErrNotConfigured is returned when no API key is set for the completion endpoint.
var ErrNotConfigured = errors.New("llm api key is not configured")

// NewProvider builds the completion client described by cfg, wrapped with
// the configured timeout and retry policy. Any OpenAI-compatible endpoint
// works through base_url.
func NewProvider(cfg config.LLMConfig, tele *telemetry.Telemetry) (core.LLMProvider, error) {
	cfg = cfg.Normalize()
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	client := openai_provider.NewClient(openai_provider.Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	})
	return core.NewResilientLLM(client, core.RetryPolicy{
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		Backoff:    cfg.RetryBackoff,
	}, tele), nil
}
