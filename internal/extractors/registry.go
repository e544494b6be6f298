// Package extractors turns a raw query string into structured signals.
// Each extractor handles one pattern class; the registry applies them in a
// fixed order and produces the residual cleaned text for semantic matching.
package extractors

import (
	"sort"
	"strings"
	"sync"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.QueryAnalyzer = (*Registry)(nil)

// Span marks a half-open matched region [Start, End) of the raw text.
type Span struct {
	Start int
	End   int
}

// Overlaps reports whether two spans share any position.
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// overlapsAny reports whether the span overlaps any already-consumed span.
func overlapsAny(s Span, taken []Span) bool {
	for _, t := range taken {
		if s.Overlaps(t) {
			return true
		}
	}
	return false
}

// Extractor recognizes one pattern class in a raw query.
//
// Extract appends detected signals and returns the spans it consumed.
// Consumed spans are excluded from later extractors and removed from the
// cleaned text. Ranking-only extractors (file-type hints, entities) record
// signals but consume nothing, so their text stays available for semantic
// matching.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Order determines application order (lowest first). High-precision
	// consuming extractors run before heuristic non-consuming ones.
	Order() int

	// Extract scans raw, skipping regions already in taken, appends findings
	// to signals and returns newly consumed spans.
	Extract(raw string, taken []Span, signals *domain.QuerySignals) []Span
}

// Registry applies a set of extractors to raw queries.
// Analyze is pure and deterministic; registration is expected at startup.
type Registry struct {
	mu         sync.RWMutex
	extractors []Extractor
	sorted     bool
}

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		extractors: make([]Extractor, 0),
	}
}

// Register adds an extractor. Extractors are sorted by Order before use.
func (r *Registry) Register(e Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append(r.extractors, e)
	r.sorted = false
}

// List returns extractor names in application order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.extractors))
	for i, e := range r.extractors {
		names[i] = e.Name()
	}
	return names
}

// Analyze parses a raw query into structured signals. Never fails: unmatched
// pattern classes simply leave their collections empty.
func (r *Registry) Analyze(raw string) *domain.QuerySignals {
	r.mu.Lock()
	if !r.sorted {
		sort.SliceStable(r.extractors, func(i, j int) bool {
			return r.extractors[i].Order() < r.extractors[j].Order()
		})
		r.sorted = true
	}
	extractors := make([]Extractor, len(r.extractors))
	copy(extractors, r.extractors)
	r.mu.Unlock()

	signals := &domain.QuerySignals{RawText: raw}

	var consumed []Span
	for _, e := range extractors {
		consumed = append(consumed, e.Extract(raw, consumed, signals)...)
	}

	signals.Identifiers = dedupe(signals.Identifiers)
	signals.FileTypeHints = dedupe(signals.FileTypeHints)
	signals.Entities = dedupe(signals.Entities)
	signals.CleanedText = removeSpans(raw, consumed)

	return signals
}

// DefaultRegistry creates a registry with all standard extractors.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewMoneyExtractor())
	r.Register(NewIdentifierExtractor())
	r.Register(NewDateExtractor())
	r.Register(NewFileTypeExtractor())
	r.Register(NewEntityExtractor())
	return r
}

// removeSpans blanks out consumed spans, collapses whitespace and trims.
func removeSpans(raw string, spans []Span) string {
	if len(spans) == 0 {
		return strings.Join(strings.Fields(raw), " ")
	}

	buf := []byte(raw)
	for _, s := range spans {
		for i := s.Start; i < s.End && i < len(buf); i++ {
			buf[i] = ' '
		}
	}
	return strings.Join(strings.Fields(string(buf)), " ")
}

// dedupe removes repeats while keeping first-seen order.
func dedupe(values []string) []string {
	if len(values) < 2 {
		return values
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
