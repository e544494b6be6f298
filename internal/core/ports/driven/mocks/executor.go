package mocks

import (
	"context"
	"sync"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Ensure MockSearchExecutor implements SearchExecutor
var _ driven.SearchExecutor = (*MockSearchExecutor)(nil)

// MockSearchExecutor is a mock implementation of SearchExecutor for testing.
// It returns canned results and records every query it receives.
type MockSearchExecutor struct {
	mu      sync.Mutex
	queries []*domain.CompoundQuery

	// Results are returned from Execute when Err is nil
	Results []domain.ExecutorResult

	// Err is returned from Execute when set
	Err error

	// HealthErr is returned from HealthCheck when set
	HealthErr error
}

// NewMockSearchExecutor creates a new MockSearchExecutor
func NewMockSearchExecutor() *MockSearchExecutor {
	return &MockSearchExecutor{}
}

func (m *MockSearchExecutor) Execute(ctx context.Context, query *domain.CompoundQuery) ([]domain.ExecutorResult, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}
	return m.Results, nil
}

func (m *MockSearchExecutor) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

// ExecutedQueries returns every query passed to Execute, in order
func (m *MockSearchExecutor) ExecutedQueries() []*domain.CompoundQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.CompoundQuery, len(m.queries))
	copy(out, m.queries)
	return out
}

// LastQuery returns the most recent query passed to Execute, or nil
func (m *MockSearchExecutor) LastQuery() *domain.CompoundQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queries) == 0 {
		return nil
	}
	return m.queries[len(m.queries)-1]
}
