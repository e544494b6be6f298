package extractors

import (
	"strings"
	"testing"
)

func TestRegistry_InvoiceWithAmountAndVendor(t *testing.T) {
	signals := DefaultRegistry().Analyze("invoice for $1234.56 from Acme Corp")

	if len(signals.MoneyAmounts) != 1 {
		t.Fatalf("expected 1 money amount, got %d", len(signals.MoneyAmounts))
	}
	if signals.MoneyAmounts[0].Currency != "USD" || signals.MoneyAmounts[0].MinorUnits != 123456 {
		t.Errorf("unexpected amount: %+v", signals.MoneyAmounts[0])
	}

	found := false
	for _, e := range signals.Entities {
		if e == "Acme Corp" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected Acme Corp entity, got %v", signals.Entities)
	}

	// Entity and hint text stays in the cleaned query; the money span goes.
	if signals.CleanedText != "invoice for from Acme Corp" {
		t.Errorf("unexpected cleaned text: %q", signals.CleanedText)
	}

	if len(signals.FileTypeHints) != 1 || signals.FileTypeHints[0] != "invoice" {
		t.Errorf("expected [invoice] hint, got %v", signals.FileTypeHints)
	}
}

func TestRegistry_BareIdentifier(t *testing.T) {
	signals := DefaultRegistry().Analyze("INV-2024-001")

	if len(signals.Identifiers) != 1 || signals.Identifiers[0] != "INV-2024-001" {
		t.Errorf("expected [INV-2024-001], got %v", signals.Identifiers)
	}
	if signals.CleanedText != "" {
		t.Errorf("expected empty cleaned text, got %q", signals.CleanedText)
	}
}

func TestRegistry_PureFreeText(t *testing.T) {
	raw := "photos from our trip to London"
	signals := DefaultRegistry().Analyze(raw)

	if len(signals.MoneyAmounts) != 0 || len(signals.Identifiers) != 0 || len(signals.Dates) != 0 {
		t.Errorf("unexpected structured signals: %+v", signals)
	}
	if len(signals.FileTypeHints) != 0 {
		t.Errorf("plural form matched a file-type hint: %v", signals.FileTypeHints)
	}
	if signals.CleanedText != raw {
		t.Errorf("cleaned text must equal raw text, got %q", signals.CleanedText)
	}
}

func TestRegistry_EmptyQuery(t *testing.T) {
	signals := DefaultRegistry().Analyze("")

	if !signals.Empty() {
		t.Errorf("expected empty signals, got %+v", signals)
	}
	if signals.CleanedText != "" {
		t.Errorf("expected empty cleaned text, got %q", signals.CleanedText)
	}
}

// Consumed spans never leak into the cleaned text.
func TestRegistry_CleanedTextExcludesStructuredSpans(t *testing.T) {
	queries := []string{
		"INV-2024-001 from 2024-05-12 over $12.50",
		"receipt 4500123988 for 99 EUR last month",
		"statement for DE89370400440532013000 Q1 2026",
	}

	for _, raw := range queries {
		signals := DefaultRegistry().Analyze(raw)
		for _, id := range signals.Identifiers {
			if strings.Contains(signals.CleanedText, id) {
				t.Errorf("identifier %q leaked into cleaned text %q", id, signals.CleanedText)
			}
		}
		for _, d := range signals.Dates {
			if strings.Contains(signals.CleanedText, d) {
				t.Errorf("date %q leaked into cleaned text %q", d, signals.CleanedText)
			}
		}
		if strings.ContainsAny(signals.CleanedText, "$€£¥") {
			t.Errorf("money span leaked into cleaned text %q", signals.CleanedText)
		}
	}
}

func TestRegistry_Deterministic(t *testing.T) {
	raw := "invoices for Acme Corp over $500 from last month pdf"
	r := DefaultRegistry()

	first := r.Analyze(raw)
	for i := 0; i < 5; i++ {
		next := r.Analyze(raw)
		if next.CleanedText != first.CleanedText ||
			len(next.MoneyAmounts) != len(first.MoneyAmounts) ||
			len(next.Entities) != len(first.Entities) {
			t.Fatalf("analysis not deterministic: %+v vs %+v", first, next)
		}
	}
}

func TestRegistry_ListsExtractorsInOrder(t *testing.T) {
	r := DefaultRegistry()
	r.Analyze("warm up sorting")

	names := r.List()
	want := []string{"money", "identifier", "date", "filetype", "entity"}
	if len(names) != len(want) {
		t.Fatalf("expected %d extractors, got %v", len(want), names)
	}
	for i, n := range want {
		if names[i] != n {
			t.Errorf("position %d: expected %s, got %s", i, n, names[i])
		}
	}
}
