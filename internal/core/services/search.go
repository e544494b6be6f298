package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driving"
	"github.com/quarry-labs/quarry-core/internal/runtime"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// searchService implements the SearchService interface.
// It owns the full pipeline: analyze -> route -> build -> execute -> assemble.
type searchService struct {
	analyzer  driven.QueryAnalyzer
	executor  driven.SearchExecutor
	assembler driven.ResultAssembler
	history   driven.HistoryStore
	queue     driven.TaskQueue  // may be nil; history recording is then skipped
	services  *runtime.Services // dynamic embedding provider
}

// NewSearchService creates a new SearchService.
// The embedding provider is accessed dynamically via runtime.Services, so a
// provider configured after startup is picked up without a restart.
func NewSearchService(
	analyzer driven.QueryAnalyzer,
	executor driven.SearchExecutor,
	assembler driven.ResultAssembler,
	history driven.HistoryStore,
	queue driven.TaskQueue,
	services *runtime.Services,
) driving.SearchService {
	return &searchService{
		analyzer:  analyzer,
		executor:  executor,
		assembler: assembler,
		history:   history,
		queue:     queue,
		services:  services,
	}
}

// Search analyzes the raw query, routes it to a strategy, builds the compound
// query and executes it. The tenant scope comes from the caller, never from
// the query text.
func (s *searchService) Search(ctx context.Context, tenantID, userID, query string, opts domain.SearchOptions) (*domain.SearchResult, error) {
	start := time.Now()

	// Zero means the caller left the limit unset; anything negative is a
	// caller error and fails before any work is done.
	if opts.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", domain.ErrInvalidInput, opts.Limit)
	}
	if opts.Limit == 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}

	signals := s.analyzer.Analyze(query)
	strategy := domain.RouteStrategy(signals)

	q, err := domain.BuildCompoundQuery(strategy, signals, tenantID, opts.Limit, opts.AmountTolerance)
	if err != nil {
		return nil, err
	}

	degraded := s.resolveEmbedding(ctx, q, signals)

	result := &domain.SearchResult{
		Query:    query,
		Strategy: q.Strategy,
		Degraded: degraded,
		Results:  []domain.RankedResult{},
	}

	// A degraded semantic query with no lexical fallback has nothing left
	// to rank; return the flagged empty result instead of executing. A
	// query that never had should-clauses (empty input) still executes:
	// the scope clause alone yields a recency-ordered tenant listing.
	if degraded && len(q.Should) == 0 && len(q.Must) <= 1 {
		result.Took = time.Since(start)
		s.recordSearch(ctx, tenantID, userID, query, result)
		return result, nil
	}

	raw, err := s.executor.Execute(ctx, q)
	if err != nil {
		var execErr *domain.ExecutionError
		if errors.As(err, &execErr) {
			return nil, err
		}
		return nil, &domain.ExecutionError{Query: q, Err: err}
	}

	result.Results = s.assembler.Assemble(q.Strategy, raw)
	result.TotalCount = len(result.Results)
	result.Took = time.Since(start)

	s.recordSearch(ctx, tenantID, userID, query, result)
	return result, nil
}

// resolveEmbedding fills vector should-clauses, degrading the query when no
// embedding provider is available or the call fails. Reports whether the
// query was degraded. The query's Strategy is updated to the effective one.
func (s *searchService) resolveEmbedding(ctx context.Context, q *domain.CompoundQuery, signals *domain.QuerySignals) bool {
	if !q.NeedsEmbedding() {
		return false
	}

	embedding := s.services.EmbeddingService()
	if embedding != nil {
		vector, err := embedding.EmbedQuery(ctx, signals.CleanedText)
		if err == nil {
			for i := range q.Should {
				if q.Should[i].Kind == domain.RankVector {
					q.Should[i].Vector = vector
				}
			}
			return false
		}
	}

	// No provider or it failed: hybrid falls back to its exact filters,
	// semantic falls back to lexical ranking only.
	switch q.Strategy {
	case domain.StrategyHybrid:
		q.DropShouldClauses()
		q.Strategy = domain.StrategyExact
	case domain.StrategySemantic:
		q.DropVectorClauses()
	}
	return true
}

// recordSearch enqueues an audit event for the executed search. Best-effort:
// a full queue never fails the search that triggered it.
func (s *searchService) recordSearch(ctx context.Context, tenantID, userID, query string, result *domain.SearchResult) {
	if s.queue == nil || query == "" {
		return
	}
	task := domain.NewRecordSearchTask(&domain.SearchEvent{
		TenantID:    tenantID,
		UserID:      userID,
		Query:       query,
		Strategy:    result.Strategy,
		Degraded:    result.Degraded,
		ResultCount: result.TotalCount,
		SearchedAt:  time.Now(),
	})
	_ = s.queue.Enqueue(ctx, task)
}

// Suggest provides search suggestions drawn from the tenant's query history
func (s *searchService) Suggest(ctx context.Context, tenantID, prefix string, limit int) ([]domain.SearchSuggestion, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 10
	}
	if limit > 50 {
		limit = 50
	}
	suggestions, err := s.history.TopQueries(ctx, tenantID, prefix, limit)
	if err != nil {
		return nil, err
	}
	if suggestions == nil {
		suggestions = []domain.SearchSuggestion{}
	}
	return suggestions, nil
}

// History returns recent search events for the tenant, newest first
func (s *searchService) History(ctx context.Context, tenantID, userID string, limit int) ([]*domain.SearchEvent, error) {
	if tenantID == "" {
		return nil, domain.ErrInvalidInput
	}
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.history.Recent(ctx, tenantID, userID, limit)
}
