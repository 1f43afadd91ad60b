package embeddings

import (
	"context"
	"time"

	"tradesync/pkg/errors"
)

// ProviderType defines supported embedding providers
type ProviderType string

const (
	ProviderOpenAI ProviderType = "openai"
	ProviderGemini ProviderType = "gemini"
)

// Config holds configuration for an embedding provider
type Config struct {
	Provider ProviderType
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// NewProvider creates an embedding provider based on config
func NewProvider(ctx context.Context, cfg Config) (Provider, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cfg.Model, cfg.Timeout)

	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.Model, cfg.Timeout)

	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput,
			"unsupported embedding provider: %s", cfg.Provider)
	}
}
