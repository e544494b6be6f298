package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Ensure MockHistoryStore implements HistoryStore
var _ driven.HistoryStore = (*MockHistoryStore)(nil)

// MockHistoryStore is a mock implementation of HistoryStore for testing
type MockHistoryStore struct {
	mu     sync.RWMutex
	events []*domain.SearchEvent

	// RecordErr makes Record fail when set
	RecordErr error
}

// NewMockHistoryStore creates a new MockHistoryStore
func NewMockHistoryStore() *MockHistoryStore {
	return &MockHistoryStore{}
}

func (m *MockHistoryStore) Record(ctx context.Context, event *domain.SearchEvent) error {
	if m.RecordErr != nil {
		return m.RecordErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *MockHistoryStore) Recent(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.SearchEvent
	for _, e := range m.events {
		if e.TenantID != tenantID {
			continue
		}
		if userID != "" && e.UserID != userID {
			continue
		}
		result = append(result, e)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].SearchedAt.After(result[j].SearchedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (m *MockHistoryStore) TopQueries(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	counts := make(map[string]int)
	for _, e := range m.events {
		if e.TenantID != tenantID {
			continue
		}
		if prefix != "" && !strings.HasPrefix(strings.ToLower(e.Query), strings.ToLower(prefix)) {
			continue
		}
		counts[e.Query]++
	}
	suggestions := make([]domain.SearchSuggestion, 0, len(counts))
	for q, n := range counts {
		suggestions = append(suggestions, domain.SearchSuggestion{Text: q, Score: float64(n)})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Text < suggestions[j].Text
	})
	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions, nil
}

func (m *MockHistoryStore) Prune(ctx context.Context, tenantID string, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*domain.SearchEvent
	var removed int64
	for _, e := range m.events {
		if e.TenantID == tenantID && e.SearchedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	m.events = kept
	return removed, nil
}

// Events returns a copy of everything recorded so far
func (m *MockHistoryStore) Events() []*domain.SearchEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.SearchEvent, len(m.events))
	copy(out, m.events)
	return out
}
