package driving

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// SearchService handles query planning and execution.
// The tenant scope always comes from the authenticated caller, never from
// the query text or request body.
type SearchService interface {
	// Search analyzes the raw query, picks a strategy, builds the compound
	// query and executes it, returning ranked results scoped to the tenant.
	Search(ctx context.Context, tenantID, userID, query string, opts domain.SearchOptions) (*domain.SearchResult, error)

	// Suggest provides search suggestions based on the tenant's past queries
	Suggest(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error)

	// History returns recent search events for the tenant, newest first.
	// When userID is non-empty only that user's searches are returned.
	History(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error)
}
