package driven

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// SearchExecutor runs a compound query against the search backend.
// The executor receives fully built queries; it never inspects raw user
// text and never alters clause semantics.
type SearchExecutor interface {
	// Execute runs the compound query and returns raw hits with their
	// per-clause match information. Returns domain.ExecutionError when
	// the backend rejects the query or is unreachable.
	Execute(ctx context.Context, query *domain.CompoundQuery) ([]domain.ExecutorResult, error)

	// HealthCheck verifies the search backend is reachable.
	HealthCheck(ctx context.Context) error
}
