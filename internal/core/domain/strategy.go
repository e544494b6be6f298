package domain

// SearchStrategy determines how a query is executed
type SearchStrategy string

const (
	StrategyExact    SearchStrategy = "exact"    // Filter clauses only
	StrategySemantic SearchStrategy = "semantic" // Similarity ranking only
	StrategyHybrid   SearchStrategy = "hybrid"   // Exact filters narrow, semantic ranks
)

// Valid reports whether the strategy is one of the known values.
func (s SearchStrategy) Valid() bool {
	switch s {
	case StrategyExact, StrategySemantic, StrategyHybrid:
		return true
	}
	return false
}

// RequiresEmbedding reports whether the strategy needs a query embedding.
func (s SearchStrategy) RequiresEmbedding() bool {
	return s == StrategySemantic || s == StrategyHybrid
}

// RouteStrategy classifies extracted signals into a search strategy.
// Deterministic, total; first matching rule wins:
//
//  1. Money or identifiers present, residual text present -> hybrid
//     (exact filters narrow candidates, semantic ranks among them).
//  2. Money or identifiers present, no residual text -> exact
//     (nothing left to rank semantically).
//  3. Otherwise -> semantic (no exact anchors; rely purely on meaning).
func RouteStrategy(signals *QuerySignals) SearchStrategy {
	if signals.HasExactAnchors() {
		if signals.CleanedText != "" {
			return StrategyHybrid
		}
		return StrategyExact
	}
	return StrategySemantic
}
