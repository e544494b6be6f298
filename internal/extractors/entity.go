package extractors

import (
	"regexp"
	"strings"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// Capitalized word: uppercase letter followed by lowercase letters.
// All-caps tokens are left to the identifier patterns.
var capitalizedWordRe = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// Common sentence-leading words that are never entity material.
var entityStopWords = map[string]bool{
	"The": true, "A": true, "An": true, "This": true, "That": true,
	"These": true, "Those": true, "From": true, "For": true, "With": true,
	"Find": true, "Show": true, "Get": true, "Search": true, "List": true,
	"My": true, "Our": true, "All": true, "Any": true, "Please": true,
}

// EntityExtractor detects runs of consecutive capitalized tokens as
// candidate vendor/org/person names. Heuristic with a high false-positive
// tolerance: entities only ever feed ranking clauses, never filters, and
// their text stays in the cleaned query, so this extractor consumes nothing.
type EntityExtractor struct{}

// NewEntityExtractor creates an entity candidate extractor.
func NewEntityExtractor() *EntityExtractor {
	return &EntityExtractor{}
}

func (e *EntityExtractor) Name() string { return "entity" }
func (e *EntityExtractor) Order() int   { return 50 }

// Extract joins adjacent capitalized tokens into entity candidates.
// A lone capitalized token at the very start of the query is skipped: there
// capitalization signals sentence start, not a name.
func (e *EntityExtractor) Extract(raw string, taken []Span, signals *domain.QuerySignals) []Span {
	locs := capitalizedWordRe.FindAllStringIndex(raw, -1)

	type token struct {
		span Span
		text string
	}
	var tokens []token
	for _, loc := range locs {
		span := Span{loc[0], loc[1]}
		if overlapsAny(span, taken) {
			continue
		}
		tokens = append(tokens, token{span: span, text: raw[loc[0]:loc[1]]})
	}

	for i := 0; i < len(tokens); {
		run := []token{tokens[i]}
		j := i + 1
		for j < len(tokens) && adjacentTokens(raw, tokens[j-1].span, tokens[j].span) {
			run = append(run, tokens[j])
			j++
		}
		i = j

		// Drop leading stop words, they capitalize for grammatical reasons
		for len(run) > 0 && entityStopWords[run[0].text] {
			run = run[1:]
		}
		if len(run) == 0 {
			continue
		}
		if len(run) == 1 && run[0].span.Start == 0 {
			continue // sentence-start-only capitalization
		}
		if len(run) == 1 && entityStopWords[run[0].text] {
			continue
		}

		words := make([]string, len(run))
		for k, tok := range run {
			words[k] = tok.text
		}
		signals.Entities = append(signals.Entities, strings.Join(words, " "))
	}

	return nil
}

// adjacentTokens reports whether only spaces separate two token spans.
func adjacentTokens(raw string, a, b Span) bool {
	if b.Start <= a.End {
		return false
	}
	between := raw[a.End:b.Start]
	return strings.TrimSpace(between) == "" && len(between) <= 2
}
