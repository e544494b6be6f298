package domain

import "time"

// SearchOptions configures a search request
type SearchOptions struct {
	Limit int `json:"limit"`

	// AmountTolerance widens money range clauses by this many minor units on
	// each side. Zero means exact cents match.
	AmountTolerance int64 `json:"amount_tolerance,omitempty"`
}

// DefaultSearchOptions returns sensible defaults
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		Limit: 20,
	}
}

// SearchResult represents the outcome of one search call
type SearchResult struct {
	Query    string         `json:"query"`
	Strategy SearchStrategy `json:"strategy"`

	// Degraded is set when the effective strategy was downgraded because the
	// embedding provider was unavailable. Distinguishes "no matches" from
	// "searched with reduced signal".
	Degraded bool `json:"degraded,omitempty"`

	Results    []RankedResult `json:"results"`
	TotalCount int            `json:"total_count"`
	Took       time.Duration  `json:"took" swaggertype:"integer" example:"1500000"`
}

// SearchSuggestion is a search autocomplete suggestion drawn from history
type SearchSuggestion struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
