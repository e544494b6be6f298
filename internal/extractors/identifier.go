package extractors

import (
	"regexp"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

var (
	// INV-2024-001, PO-99813, ref-2024-17-b
	prefixedIDRe = regexp.MustCompile(`\b[A-Za-z]{2,10}-\d+(?:-[A-Za-z0-9]+)*\b`)

	// jane.doe+billing@example.co
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

	// Two letters, two check digits, then 11+ alphanumerics (IBAN-like,
	// total length >= 15). The digit requirement keeps plain long words out.
	ibanLikeRe = regexp.MustCompile(`\b[A-Za-z]{2}\d{2}[A-Za-z0-9]{11,}\b`)

	// Bare long numeric runs (order numbers, account IDs)
	longDigitsRe = regexp.MustCompile(`\b\d{8,}\b`)
)

// IdentifierExtractor detects exact codes: prefixed document numbers, email
// addresses, IBAN-like tokens and long numeric runs.
type IdentifierExtractor struct{}

// NewIdentifierExtractor creates an identifier extractor.
func NewIdentifierExtractor() *IdentifierExtractor {
	return &IdentifierExtractor{}
}

func (e *IdentifierExtractor) Name() string { return "identifier" }
func (e *IdentifierExtractor) Order() int   { return 20 }

// Extract applies the identifier patterns. Emails run before IBAN-like and
// digit runs so an address is never split into sub-tokens.
func (e *IdentifierExtractor) Extract(raw string, taken []Span, signals *domain.QuerySignals) []Span {
	var consumed []Span

	for _, re := range []*regexp.Regexp{emailRe, prefixedIDRe, ibanLikeRe, longDigitsRe} {
		for _, loc := range re.FindAllStringIndex(raw, -1) {
			span := Span{loc[0], loc[1]}
			if overlapsAny(span, taken) || overlapsAny(span, consumed) {
				continue
			}
			signals.Identifiers = append(signals.Identifiers, raw[loc[0]:loc[1]])
			consumed = append(consumed, span)
		}
	}

	return consumed
}
