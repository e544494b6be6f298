package postgres

import (
	"context"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore implements driven.HistoryStore using PostgreSQL
type HistoryStore struct {
	db *DB
}

// NewHistoryStore creates a new HistoryStore
func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Record persists a search event
func (s *HistoryStore) Record(ctx context.Context, event *domain.SearchEvent) error {
	query := `
		INSERT INTO search_history (id, tenant_id, user_id, query, strategy, degraded, result_count, searched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.TenantID,
		event.UserID,
		event.Query,
		string(event.Strategy),
		event.Degraded,
		event.ResultCount,
		event.SearchedAt,
	)
	return err
}

// Recent returns the newest search events for a tenant, optionally
// filtered to a single user.
func (s *HistoryStore) Recent(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error) {
	query := `
		SELECT id, tenant_id, user_id, query, strategy, degraded, result_count, searched_at
		FROM search_history
		WHERE tenant_id = $1 AND ($2 = '' OR user_id = $2)
		ORDER BY searched_at DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.SearchEvent
	for rows.Next() {
		var event domain.SearchEvent
		err := rows.Scan(
			&event.ID,
			&event.TenantID,
			&event.UserID,
			&event.Query,
			&event.Strategy,
			&event.Degraded,
			&event.ResultCount,
			&event.SearchedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// TopQueries returns the most frequent queries for a tenant matching a
// prefix, scored by how often they were issued.
func (s *HistoryStore) TopQueries(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error) {
	query := `
		SELECT query, COUNT(*) AS freq
		FROM search_history
		WHERE tenant_id = $1 AND query LIKE $2 || '%'
		GROUP BY query
		ORDER BY freq DESC, query ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, tenantID, prefix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suggestions []domain.SearchSuggestion
	for rows.Next() {
		var text string
		var freq int64
		if err := rows.Scan(&text, &freq); err != nil {
			return nil, err
		}
		suggestions = append(suggestions, domain.SearchSuggestion{
			Text:  text,
			Score: float64(freq),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return suggestions, nil
}

// Prune deletes events older than the cutoff and reports how many rows
// were removed.
func (s *HistoryStore) Prune(ctx context.Context, tenantID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM search_history WHERE tenant_id = $1 AND searched_at < $2`
	result, err := s.db.ExecContext(ctx, query, tenantID, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
