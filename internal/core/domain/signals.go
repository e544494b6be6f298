package domain

// MoneyAmount is a detected monetary mention. Amounts are stored as integer
// minor units ($12.34 -> 1234) so filter clauses never compare floats.
type MoneyAmount struct {
	// Currency is the ISO 4217 code (USD, EUR, ...). Empty when the amount
	// carried no resolvable currency marker.
	Currency string `json:"currency,omitempty"`

	// MinorUnits is the amount in the currency's smallest unit.
	MinorUnits int64 `json:"minor_units"`
}

// QuerySignals holds the structured facts extracted from a raw query.
// Sequences keep order of appearance in the text; set-like fields
// (Identifiers, FileTypeHints, Entities) are deduplicated.
type QuerySignals struct {
	// RawText is the original input, never modified.
	RawText string `json:"raw_text"`

	// MoneyAmounts are detected monetary mentions, in order of appearance.
	MoneyAmounts []MoneyAmount `json:"money_amounts,omitempty"`

	// Identifiers are detected exact codes: invoice numbers, emails,
	// IBAN-like tokens, long numeric IDs.
	Identifiers []string `json:"identifiers,omitempty"`

	// Dates are detected date-like substrings, loosely normalized.
	Dates []string `json:"dates,omitempty"`

	// FileTypeHints are detected file-type keywords (pdf, csv, invoice, ...).
	FileTypeHints []string `json:"file_type_hints,omitempty"`

	// Entities are capitalized-token candidates (vendors, orgs, people).
	// Heuristic and high false-positive; only ever used for ranking.
	Entities []string `json:"entities,omitempty"`

	// CleanedText is RawText with every matched structured span removed and
	// whitespace collapsed. Empty when the whole query was structured tokens,
	// in which case the semantic clause is skipped.
	CleanedText string `json:"cleaned_text"`
}

// HasExactAnchors reports whether the query carries high-precision signals
// (money or identifiers) that must constrain the candidate set.
func (s *QuerySignals) HasExactAnchors() bool {
	return len(s.MoneyAmounts) > 0 || len(s.Identifiers) > 0
}

// Empty reports whether nothing at all was extracted.
func (s *QuerySignals) Empty() bool {
	return len(s.MoneyAmounts) == 0 &&
		len(s.Identifiers) == 0 &&
		len(s.Dates) == 0 &&
		len(s.FileTypeHints) == 0 &&
		len(s.Entities) == 0 &&
		s.CleanedText == ""
}
