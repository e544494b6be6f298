package vespa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchExecutor = (*Executor)(nil)

// Executor implements driven.SearchExecutor against a Vespa cluster.
// It translates compound queries into YQL and maps hits back into
// executor results with per-hit match provenance.
type Executor struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds Vespa connection configuration
type Config struct {
	// BaseURL is the Vespa query endpoint (e.g., http://localhost:8080)
	BaseURL string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Timeout: 30 * time.Second,
	}
}

// NewExecutor creates a new Vespa-backed search executor
func NewExecutor(cfg Config) *Executor {
	return &Executor{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Rank profiles defined in the record schema, one per strategy.
var rankProfiles = map[domain.SearchStrategy]string{
	domain.StrategyExact:    "filter",
	domain.StrategySemantic: "semantic",
	domain.StrategyHybrid:   "hybrid",
}

// Execute runs a compound query and returns raw candidates.
func (e *Executor) Execute(ctx context.Context, query *domain.CompoundQuery) ([]domain.ExecutorResult, error) {
	yql, err := buildYQL(query)
	if err != nil {
		return nil, err
	}

	searchReq := map[string]interface{}{
		"yql":  yql,
		"hits": query.Limit,
	}

	profile, ok := rankProfiles[query.Strategy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, query.Strategy)
	}
	searchReq["ranking.profile"] = profile

	if vector := queryVector(query); vector != nil {
		searchReq["input.query(embedding)"] = vector
	}

	body, err := json.Marshal(searchReq)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/search/", e.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vespa search failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("vespa search failed: %s - %s", resp.Status, string(respBody))
	}

	var searchResp vespaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}

	hasExactFilters := countExactFilters(query) > 0

	results := make([]domain.ExecutorResult, 0, len(searchResp.Root.Children))
	for _, hit := range searchResp.Root.Children {
		results = append(results, toExecutorResult(hit, hasExactFilters))
	}

	return results, nil
}

// queryVector returns the embedding of the first vector should-clause
// that carries one, or nil.
func queryVector(query *domain.CompoundQuery) []float32 {
	for _, c := range query.Should {
		if c.Kind == domain.RankVector && len(c.Vector) > 0 {
			return c.Vector
		}
	}
	return nil
}

// countExactFilters counts must-clauses beyond the tenant scope.
func countExactFilters(query *domain.CompoundQuery) int {
	n := 0
	for _, c := range query.Must {
		if c.Kind != domain.FilterScope {
			n++
		}
	}
	return n
}

// buildYQL renders the compound query as a YQL select over the record
// document type. Must-clauses AND together and alone decide recall; the
// should-clauses ride along as rank() operands, contributing match
// features for scoring without excluding any hit.
func buildYQL(query *domain.CompoundQuery) (string, error) {
	var conditions []string

	for _, clause := range query.Must {
		cond, err := renderFilter(clause)
		if err != nil {
			return "", err
		}
		conditions = append(conditions, cond)
	}

	retrieval := "true"
	if len(conditions) > 0 {
		retrieval = strings.Join(conditions, " and ")
	}

	where := retrieval
	if rankers := renderShould(query.Should); len(rankers) > 0 {
		where = fmt.Sprintf("rank(%s, %s)", retrieval, strings.Join(rankers, ", "))
	}

	return fmt.Sprintf("select * from record where %s", where), nil
}

func renderFilter(clause domain.FilterClause) (string, error) {
	switch clause.Kind {
	case domain.FilterScope, domain.FilterTerm:
		return fmt.Sprintf("%s contains \"%s\"", clause.Field, escapeYQL(clause.Value)), nil

	case domain.FilterRange:
		cond := fmt.Sprintf("range(%s, %d, %d)", clause.Field, clause.Min, clause.Max)
		if clause.Currency != "" {
			cond = fmt.Sprintf("(%s and %s contains \"%s\")", cond, domain.FieldCurrency, escapeYQL(clause.Currency))
		}
		return cond, nil

	case domain.FilterAnyOf:
		if len(clause.AnyOf) == 0 {
			return "", fmt.Errorf("%w: empty any_of clause", domain.ErrInvalidInput)
		}
		alternatives := make([]string, 0, len(clause.AnyOf))
		for _, nested := range clause.AnyOf {
			cond, err := renderFilter(nested)
			if err != nil {
				return "", err
			}
			alternatives = append(alternatives, cond)
		}
		return "(" + strings.Join(alternatives, " or ") + ")", nil

	default:
		return "", fmt.Errorf("%w: unknown filter kind %q", domain.ErrInvalidInput, clause.Kind)
	}
}

// renderShould renders each ranking clause as a rank() operand.
func renderShould(should []domain.RankClause) []string {
	var operands []string
	for _, clause := range should {
		switch clause.Kind {
		case domain.RankLexical:
			operands = append(operands,
				fmt.Sprintf("%s contains \"%s\"", domain.FieldContent, escapeYQL(clause.Text)))
		case domain.RankVector:
			if len(clause.Vector) > 0 {
				operands = append(operands,
					"({targetHits:100}nearestNeighbor(embedding,embedding))")
			}
		}
	}
	return operands
}

func escapeYQL(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	return strings.ReplaceAll(s, "\"", "\\\"")
}

// vespaSearchResponse represents Vespa's search response format
type vespaSearchResponse struct {
	Root struct {
		Fields struct {
			TotalCount int64 `json:"totalCount"`
		} `json:"fields"`
		Children []vespaHit `json:"children"`
	} `json:"root"`
}

type vespaHit struct {
	Relevance float64 `json:"relevance"`
	Fields    struct {
		SourceID string    `json:"source_id"`
		Page     *int      `json:"page,omitempty"`
		Row      *int      `json:"row,omitempty"`
		BBox     []float64 `json:"bbox,omitempty"`

		// Per-hit rank features enabled in the rank profiles.
		MatchFeatures map[string]float64 `json:"matchfeatures,omitempty"`
	} `json:"fields"`
}

// toExecutorResult maps a Vespa hit to the executor result shape.
// Clause provenance comes from match features: a positive bm25 means the
// lexical clause matched, a positive closeness means the vector clause
// matched. Exact provenance holds for every hit when the query carried
// exact filters, since those are mandatory.
func toExecutorResult(hit vespaHit, hasExactFilters bool) domain.ExecutorResult {
	result := domain.ExecutorResult{
		SourceID: hit.Fields.SourceID,
		Score:    hit.Relevance,
		Page:     hit.Fields.Page,
		Row:      hit.Fields.Row,
	}

	if len(hit.Fields.BBox) == 4 {
		var bbox [4]float64
		copy(bbox[:], hit.Fields.BBox)
		result.BBox = &bbox
	}

	if hasExactFilters {
		result.MatchedClauses = append(result.MatchedClauses, domain.ClauseExact)
	}
	if hit.Fields.MatchFeatures["bm25(content)"] > 0 {
		result.MatchedClauses = append(result.MatchedClauses, domain.ClauseLexical)
	}
	if hit.Fields.MatchFeatures["closeness(field,embedding)"] > 0 {
		result.MatchedClauses = append(result.MatchedClauses, domain.ClauseSemantic)
	}

	return result
}

// HealthCheck verifies the Vespa endpoint is available
func (e *Executor) HealthCheck(ctx context.Context) error {
	url := fmt.Sprintf("%s/state/v1/health", e.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vespa health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vespa unhealthy: %s", resp.Status)
	}

	return nil
}
