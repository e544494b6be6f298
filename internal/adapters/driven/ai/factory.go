package ai

import (
	"fmt"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// EmbeddingConfig holds the settings needed to build an embedding provider
type EmbeddingConfig struct {
	Provider string // "openai" (empty means disabled)
	APIKey   string
	Model    string
	BaseURL  string
}

// IsConfigured reports whether a provider was specified at all
func (c EmbeddingConfig) IsConfigured() bool {
	return c.Provider != ""
}

// NewEmbeddingService creates an embedding service from configuration.
// Returns (nil, nil) when no provider is configured; searches then run
// without vector ranking.
func NewEmbeddingService(cfg EmbeddingConfig) (driven.EmbeddingService, error) {
	if !cfg.IsConfigured() {
		return nil, nil
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIEmbedding(cfg.APIKey, cfg.Model, cfg.BaseURL)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, cfg.Provider)
	}
}
