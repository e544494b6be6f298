package driven

import (
	"context"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// HistoryStore persists the per-tenant search audit trail (PostgreSQL).
// Writes arrive through the task queue, never on the search request path.
type HistoryStore interface {
	// Record persists a single search event
	Record(ctx context.Context, event *domain.SearchEvent) error

	// Recent returns the newest events for a tenant, most recent first.
	// When userID is non-empty, only that user's events are returned.
	Recent(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error)

	// TopQueries returns a tenant's most frequent queries with the given
	// prefix, ordered by occurrence count. Used for suggestions.
	TopQueries(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error)

	// Prune deletes events older than the cutoff and reports how many rows
	// were removed
	Prune(ctx context.Context, tenantID string, cutoff time.Time) (int64, error)
}
