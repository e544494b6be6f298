package driven

import (
	"context"
)

// EmbeddingService turns query text into vectors for semantic clauses.
// A nil service means semantic search is unavailable and callers degrade
// to lexical-only strategies.
type EmbeddingService interface {
	// EmbedQuery generates an embedding for a search query.
	EmbedQuery(ctx context.Context, query string) ([]float32, error)

	// Dimensions returns the embedding dimension size.
	Dimensions() int

	// Model returns the model name being used.
	Model() string

	// HealthCheck verifies the embedding provider is reachable.
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service.
	Close() error
}
