package domain

// ClauseType identifies which kind of query clause a candidate matched.
// Reported by the execution boundary per hit.
type ClauseType string

const (
	ClauseExact    ClauseType = "exact"
	ClauseLexical  ClauseType = "lexical"
	ClauseSemantic ClauseType = "semantic"
)

// MatchType is the provenance label attached to a result for explainability
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchSemantic MatchType = "semantic"
	MatchHybrid   MatchType = "hybrid"
)

// DeepLink locates a match inside its source document. Absent coordinates
// stay nil, never fabricated.
type DeepLink struct {
	Page *int        `json:"page,omitempty"`
	Row  *int        `json:"row,omitempty"`
	BBox *[4]float64 `json:"bbox,omitempty"`
}

// ExecutorResult is one raw candidate returned by the execution boundary.
type ExecutorResult struct {
	SourceID       string       `json:"source_id"`
	Score          float64      `json:"score"`
	MatchedClauses []ClauseType `json:"matched_clause_types,omitempty"`

	// Structural position, when the engine has it for this hit.
	Page *int        `json:"page,omitempty"`
	Row  *int        `json:"row,omitempty"`
	BBox *[4]float64 `json:"bbox,omitempty"`
}

// RankedResult is one assembled output record. Constructed fresh per search,
// never mutated afterwards, never persisted by this core.
type RankedResult struct {
	SourceID string `json:"source_id"`

	// Score is strategy-dependent in scale: comparable within one result
	// set, never across queries.
	Score float64 `json:"score"`

	MatchType MatchType `json:"match_type"`
	DeepLink  *DeepLink `json:"deep_link,omitempty"`
}
