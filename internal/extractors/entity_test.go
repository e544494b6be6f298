package extractors

import (
	"testing"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

func extractEntities(t *testing.T, raw string) []string {
	t.Helper()
	signals := &domain.QuerySignals{RawText: raw}
	NewEntityExtractor().Extract(raw, nil, signals)
	return signals.Entities
}

func TestEntityExtractor_MultiTokenRun(t *testing.T) {
	entities := extractEntities(t, "invoice from Acme Corp about servers")
	if len(entities) != 1 || entities[0] != "Acme Corp" {
		t.Errorf("expected [Acme Corp], got %v", entities)
	}
}

func TestEntityExtractor_SingleTokenMidSentence(t *testing.T) {
	entities := extractEntities(t, "photos from our trip to London")
	if len(entities) != 1 || entities[0] != "London" {
		t.Errorf("expected [London], got %v", entities)
	}
}

// A lone capitalized word opening the query is sentence-start noise.
func TestEntityExtractor_SentenceStartSkipped(t *testing.T) {
	if entities := extractEntities(t, "Receipts from the airport"); len(entities) != 0 {
		t.Errorf("expected no entities, got %v", entities)
	}
}

func TestEntityExtractor_LeadingStopWordDropped(t *testing.T) {
	entities := extractEntities(t, "documents about The Hartford Group")
	if len(entities) != 1 || entities[0] != "Hartford Group" {
		t.Errorf("expected [Hartford Group], got %v", entities)
	}
}

func TestEntityExtractor_AllCapsIgnored(t *testing.T) {
	if entities := extractEntities(t, "notes about IBM hardware"); len(entities) != 0 {
		t.Errorf("all-caps token treated as entity: %v", entities)
	}
}

func TestEntityExtractor_ConsumesNothing(t *testing.T) {
	signals := &domain.QuerySignals{}
	spans := NewEntityExtractor().Extract("mail from Acme Corp", nil, signals)
	if len(spans) != 0 {
		t.Errorf("entity extractor must not consume spans, got %v", spans)
	}
}
