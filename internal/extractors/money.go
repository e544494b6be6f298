package extractors

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// Currency symbol to ISO code. Fixed table; unknown symbols are not money.
var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

// Recognized ISO codes. A bare 1-3 letter token next to a number only counts
// as a currency marker when it is in this set.
var currencyCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true,
	"CHF": true, "CAD": true, "AUD": true, "SEK": true,
	"NOK": true, "DKK": true, "PLN": true, "CZK": true,
	"INR": true, "BRL": true,
}

// Minor units per major unit. Default is 100 (cents).
var currencyMinorFactor = map[string]int64{
	"JPY": 1,
}

const numberPattern = `\d+(?:,\d{3})*(?:\.\d{1,2})?`

var (
	// $1,234.56 / € 99
	symbolAmountRe = regexp.MustCompile(`[$€£¥]\s?(?:` + numberPattern + `)`)

	// 1234.56 USD / USD 1234.56
	amountCodeRe = regexp.MustCompile(`(?i)\b(?:` + numberPattern + `)\s?[A-Za-z]{1,3}\b`)
	codeAmountRe = regexp.MustCompile(`(?i)\b[A-Za-z]{1,3}\s?(?:` + numberPattern + `)\b`)

	moneyDigitsRe = regexp.MustCompile(numberPattern)
	moneyCodeRe   = regexp.MustCompile(`[A-Za-z]{1,3}`)
)

// MoneyExtractor detects monetary mentions with an explicit currency marker.
// Bare numbers without a symbol or code are never treated as money.
type MoneyExtractor struct{}

// NewMoneyExtractor creates a money extractor.
func NewMoneyExtractor() *MoneyExtractor {
	return &MoneyExtractor{}
}

func (e *MoneyExtractor) Name() string { return "money" }
func (e *MoneyExtractor) Order() int   { return 10 }

// Extract finds symbol- and code-marked amounts in order of appearance.
func (e *MoneyExtractor) Extract(raw string, taken []Span, signals *domain.QuerySignals) []Span {
	type hit struct {
		span     Span
		currency string
		amount   string
	}
	var hits []hit

	for _, loc := range symbolAmountRe.FindAllStringIndex(raw, -1) {
		span := Span{loc[0], loc[1]}
		if overlapsAny(span, taken) {
			continue
		}
		match := raw[loc[0]:loc[1]]
		symbol := string([]rune(match)[0])
		hits = append(hits, hit{
			span:     span,
			currency: currencySymbols[symbol],
			amount:   moneyDigitsRe.FindString(match),
		})
	}

	for _, re := range []*regexp.Regexp{amountCodeRe, codeAmountRe} {
		for _, loc := range re.FindAllStringIndex(raw, -1) {
			span := Span{loc[0], loc[1]}
			if overlapsAny(span, taken) {
				continue
			}
			match := raw[loc[0]:loc[1]]
			digits := moneyDigitsRe.FindString(match)
			code := strings.ToUpper(moneyCodeRe.FindString(strings.Replace(match, digits, "", 1)))
			if !currencyCodes[code] {
				continue
			}
			overlapping := false
			for _, h := range hits {
				if span.Overlaps(h.span) {
					overlapping = true
					break
				}
			}
			if overlapping {
				continue
			}
			hits = append(hits, hit{span: span, currency: code, amount: digits})
		}
	}

	// Order of appearance in the text
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].span.Start < hits[j-1].span.Start; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	spans := make([]Span, 0, len(hits))
	for _, h := range hits {
		minor, ok := toMinorUnits(h.amount, h.currency)
		if !ok {
			continue
		}
		signals.MoneyAmounts = append(signals.MoneyAmounts, domain.MoneyAmount{
			Currency:   h.currency,
			MinorUnits: minor,
		})
		spans = append(spans, h.span)
	}
	return spans
}

// toMinorUnits converts "1,234.56" to 123456 for 2-decimal currencies.
func toMinorUnits(amount, currency string) (int64, bool) {
	amount = strings.ReplaceAll(amount, ",", "")
	whole, frac := amount, ""
	if idx := strings.IndexByte(amount, '.'); idx >= 0 {
		whole, frac = amount[:idx], amount[idx+1:]
	}

	factor := int64(100)
	if f, ok := currencyMinorFactor[currency]; ok {
		factor = f
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, false
	}
	minor := major * factor

	if frac != "" && factor == 100 {
		if len(frac) == 1 {
			frac += "0"
		}
		cents, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, false
		}
		minor += cents
	}
	return minor, true
}
