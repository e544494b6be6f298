package driven

import "github.com/quarry-labs/quarry-core/internal/core/domain"

// ResultAssembler turns raw executor hits into the final ranked result list:
// deduplicated, labelled with a match type and sorted by descending score.
type ResultAssembler interface {
	// Assemble processes raw results for a query executed with the given
	// strategy. The returned slice is ordered by descending score; ties
	// keep the first-seen result first.
	Assemble(strategy domain.SearchStrategy, raw []domain.ExecutorResult) []domain.RankedResult
}
