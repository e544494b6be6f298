package domain

import "fmt"

// Index fields the planner targets. The executor adapter maps these onto the
// engine schema; the planner never emits a field outside this set.
const (
	FieldTenant      = "tenant_id"
	FieldIdentifiers = "identifiers"
	FieldAmountMinor = "amount_minor"
	FieldCurrency    = "currency"
	FieldDocClass    = "doc_class"
	FieldContent     = "content"
)

// FilterKind identifies the type of a must-clause
type FilterKind string

const (
	FilterTerm  FilterKind = "term"   // Exact keyword equality
	FilterRange FilterKind = "range"  // Inclusive integer range (minor units)
	FilterScope FilterKind = "scope"  // Tenant/owner boundary
	FilterAnyOf FilterKind = "any_of" // OR-group of nested clauses
)

// FilterClause is one mandatory condition. All must-clauses AND together;
// an any_of clause ORs its nested clauses internally.
type FilterClause struct {
	Kind  FilterKind `json:"kind"`
	Field string     `json:"field,omitempty"`

	// Value carries the term for term/scope clauses.
	Value string `json:"value,omitempty"`

	// Min/Max bound a range clause, both inclusive.
	Min int64 `json:"min,omitempty"`
	Max int64 `json:"max,omitempty"`

	// Currency restricts a money range to one currency when known.
	Currency string `json:"currency,omitempty"`

	// AnyOf holds the alternatives of an any_of clause.
	AnyOf []FilterClause `json:"any_of,omitempty"`
}

// RankKind identifies the type of a should-clause
type RankKind string

const (
	RankLexical RankKind = "lexical" // BM25-style text match
	RankVector  RankKind = "vector"  // Embedding similarity
)

// RankClause contributes to scoring without being mandatory. A vector clause
// starts with only Text set; the orchestrating service fills Vector after
// calling the embedding provider.
type RankClause struct {
	Kind   RankKind  `json:"kind"`
	Text   string    `json:"text"`
	Vector []float32 `json:"vector,omitempty"`
}

// CompoundQuery is the structured request handed to the execution boundary.
type CompoundQuery struct {
	Strategy SearchStrategy `json:"strategy"`
	Must     []FilterClause `json:"must"`
	Should   []RankClause   `json:"should,omitempty"`
	Limit    int            `json:"limit"`
}

// NeedsEmbedding reports whether any should-clause still awaits a vector.
func (q *CompoundQuery) NeedsEmbedding() bool {
	for _, c := range q.Should {
		if c.Kind == RankVector && len(c.Vector) == 0 {
			return true
		}
	}
	return false
}

// ScopeClause returns the tenant scope clause, or nil if absent.
func (q *CompoundQuery) ScopeClause() *FilterClause {
	for i := range q.Must {
		if q.Must[i].Kind == FilterScope {
			return &q.Must[i]
		}
	}
	return nil
}

// BuildCompoundQuery constructs the structured query for a routed strategy.
// The tenant scope must-clause is always emitted first, for every strategy.
//
// For exact and hybrid: one term clause per identifier, one minor-unit range
// clause per money amount (widened by tolerance on each side), and a single
// any_of clause over file-type hints when present.
//
// For semantic and hybrid: a vector and a lexical should-clause over the
// cleaned text, skipped entirely when the cleaned text is empty.
func BuildCompoundQuery(strategy SearchStrategy, signals *QuerySignals, tenantID string, limit int, tolerance int64) (*CompoundQuery, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenant scope is required", ErrInvalidInput)
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", ErrInvalidInput, strategy)
	}
	if tolerance < 0 {
		return nil, fmt.Errorf("%w: amount tolerance must not be negative", ErrInvalidInput)
	}

	q := &CompoundQuery{
		Strategy: strategy,
		Must: []FilterClause{
			{Kind: FilterScope, Field: FieldTenant, Value: tenantID},
		},
		Limit: limit,
	}

	if strategy == StrategyExact || strategy == StrategyHybrid {
		for _, id := range signals.Identifiers {
			q.Must = append(q.Must, FilterClause{
				Kind:  FilterTerm,
				Field: FieldIdentifiers,
				Value: id,
			})
		}

		for _, m := range signals.MoneyAmounts {
			q.Must = append(q.Must, FilterClause{
				Kind:     FilterRange,
				Field:    FieldAmountMinor,
				Min:      m.MinorUnits - tolerance,
				Max:      m.MinorUnits + tolerance,
				Currency: m.Currency,
			})
		}

		// File-type hints are alternatives, not simultaneous requirements
		if len(signals.FileTypeHints) > 0 {
			anyOf := make([]FilterClause, 0, len(signals.FileTypeHints))
			for _, hint := range signals.FileTypeHints {
				anyOf = append(anyOf, FilterClause{
					Kind:  FilterTerm,
					Field: FieldDocClass,
					Value: hint,
				})
			}
			q.Must = append(q.Must, FilterClause{Kind: FilterAnyOf, AnyOf: anyOf})
		}
	}

	if (strategy == StrategySemantic || strategy == StrategyHybrid) && signals.CleanedText != "" {
		q.Should = append(q.Should,
			RankClause{Kind: RankVector, Text: signals.CleanedText},
			RankClause{Kind: RankLexical, Text: signals.CleanedText},
		)
	}

	return q, nil
}

// DropVectorClauses removes vector should-clauses, keeping lexical ones.
// Used when the embedding provider is unavailable.
func (q *CompoundQuery) DropVectorClauses() {
	kept := q.Should[:0]
	for _, c := range q.Should {
		if c.Kind != RankVector {
			kept = append(kept, c)
		}
	}
	q.Should = kept
}

// DropShouldClauses removes all should-clauses, leaving a pure filter query.
func (q *CompoundQuery) DropShouldClauses() {
	q.Should = nil
}
