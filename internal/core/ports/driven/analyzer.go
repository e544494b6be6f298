package driven

import "github.com/quarry-labs/quarry-core/internal/core/domain"

// QueryAnalyzer extracts structured signals from a raw query string.
// Analysis is pure text processing: deterministic, no I/O, no stored state.
type QueryAnalyzer interface {
	// Analyze extracts money amounts, identifiers, dates, file-type hints
	// and entities from raw, and produces the cleaned residual text.
	Analyze(raw string) *domain.QuerySignals
}
