package provider

import (
	"context"
	"errors"

	"github.com/paolomoz/pagepoof-sub000/config"
	openai_provider "github.com/paolomoz/pagepoof-sub000/provider/openai"
)

// Provider is the outbound completion-service surface the pipeline depends
// on. Implementations return free text that is expected, but not guaranteed,
// to contain a JSON payload; callers own the parse fallbacks.
type Provider interface {
	// Complete sends a system/user prompt pair to the named model and
	// returns the raw completion text.
	Complete(ctx context.Context, systemPrompt, userPrompt, model string) (string, error)
	// CreateEmbedding generates one embedding vector per input text.
	CreateEmbedding(ctx context.Context, texts []string, model string) ([][]float32, error)
	// GenerateImage renders an image for the given hint and size and
	// returns a stored-object reference (URL).
	GenerateImage(ctx context.Context, hint, size, model string) (string, error)
}

// NewProvider creates a completion-service client from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return openai_provider.NewClient(cfg.APIKey, cfg.BaseURL, cfg.MaxTokens, cfg.Timeout), nil
	default:
		return nil, errors.New("unsupported LLM provider: " + cfg.Provider)
	}
}
