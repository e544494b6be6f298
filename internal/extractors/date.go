package extractors

import (
	"regexp"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

var (
	isoDateRe = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

	quarterRe = regexp.MustCompile(`(?i)\bQ[1-4]\s+\d{4}\b`)

	// Small fixed vocabulary of relative phrases
	relativeDateRe = regexp.MustCompile(`(?i)\b(?:today|yesterday|last\s+(?:week|month|year)|this\s+(?:week|month|year))\b`)
)

// DateExtractor detects ISO dates, quarter notation and a fixed vocabulary
// of relative phrases. Values are kept as matched, loosely normalized.
type DateExtractor struct{}

// NewDateExtractor creates a date extractor.
func NewDateExtractor() *DateExtractor {
	return &DateExtractor{}
}

func (e *DateExtractor) Name() string { return "date" }
func (e *DateExtractor) Order() int   { return 30 }

// Extract records date-like substrings in order of appearance.
func (e *DateExtractor) Extract(raw string, taken []Span, signals *domain.QuerySignals) []Span {
	type hit struct {
		span Span
		text string
	}
	var hits []hit

	for _, re := range []*regexp.Regexp{isoDateRe, quarterRe, relativeDateRe} {
		for _, loc := range re.FindAllStringIndex(raw, -1) {
			span := Span{loc[0], loc[1]}
			if overlapsAny(span, taken) {
				continue
			}
			overlapping := false
			for _, h := range hits {
				if span.Overlaps(h.span) {
					overlapping = true
					break
				}
			}
			if !overlapping {
				hits = append(hits, hit{span: span, text: raw[loc[0]:loc[1]]})
			}
		}
	}

	// Order of appearance in the text
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].span.Start < hits[j-1].span.Start; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	consumed := make([]Span, 0, len(hits))
	for _, h := range hits {
		signals.Dates = append(signals.Dates, h.text)
		consumed = append(consumed, h.span)
	}
	return consumed
}
