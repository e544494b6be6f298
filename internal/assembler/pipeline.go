// Package assembler turns raw executor candidates into the final ranked
// result list: merge duplicates, label match provenance, translate deep
// links, and order deterministically.
package assembler

import (
	"sort"
	"sync"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.ResultAssembler = (*Pipeline)(nil)

// Candidate is the intermediate record flowing through the stages.
type Candidate struct {
	SourceID string
	Score    float64

	// Clauses is the union of clause types this source matched, across
	// all occurrences merged into this candidate.
	Clauses map[domain.ClauseType]struct{}

	// FirstSeen is the input position of the earliest occurrence; it breaks
	// score ties so output order is stable for identical inputs.
	FirstSeen int

	// Position metadata of the highest-scoring occurrence.
	Page *int
	Row  *int
	BBox *[4]float64

	// MatchType is assigned by the labelling stage.
	MatchType domain.MatchType
}

// Stage is one transformation applied to the candidate set.
type Stage interface {
	// Name identifies the stage in logs.
	Name() string

	// Order determines application order (lowest first).
	Order() int

	// Process transforms the candidate set for the given query strategy.
	Process(strategy domain.SearchStrategy, candidates []*Candidate) []*Candidate
}

// Pipeline chains stages in order. Assemble is pure per call; stage
// registration is expected at startup.
type Pipeline struct {
	mu     sync.RWMutex
	stages []Stage
	sorted bool
}

// NewPipeline creates an empty pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		stages: make([]Stage, 0),
	}
}

// Add adds a stage. Stages are sorted by Order before processing.
func (p *Pipeline) Add(stage Stage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stages = append(p.stages, stage)
	p.sorted = false
}

// List returns stage names in application order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Assemble runs all stages over the raw executor candidates and produces
// the final ranked results.
func (p *Pipeline) Assemble(strategy domain.SearchStrategy, raw []domain.ExecutorResult) []domain.RankedResult {
	p.mu.Lock()
	if !p.sorted {
		sort.SliceStable(p.stages, func(i, j int) bool {
			return p.stages[i].Order() < p.stages[j].Order()
		})
		p.sorted = true
	}
	stages := make([]Stage, len(p.stages))
	copy(stages, p.stages)
	p.mu.Unlock()

	candidates := make([]*Candidate, 0, len(raw))
	for i, r := range raw {
		c := &Candidate{
			SourceID:  r.SourceID,
			Score:     r.Score,
			Clauses:   make(map[domain.ClauseType]struct{}, len(r.MatchedClauses)),
			FirstSeen: i,
			Page:      r.Page,
			Row:       r.Row,
			BBox:      r.BBox,
		}
		for _, ct := range r.MatchedClauses {
			c.Clauses[ct] = struct{}{}
		}
		candidates = append(candidates, c)
	}

	for _, stage := range stages {
		candidates = stage.Process(strategy, candidates)
	}

	results := make([]domain.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, domain.RankedResult{
			SourceID:  c.SourceID,
			Score:     c.Score,
			MatchType: c.MatchType,
			DeepLink:  deepLink(c),
		})
	}
	return results
}

// deepLink builds the deep link from whatever position metadata survived.
// All-absent metadata yields nil, never an empty struct.
func deepLink(c *Candidate) *domain.DeepLink {
	if c.Page == nil && c.Row == nil && c.BBox == nil {
		return nil
	}
	return &domain.DeepLink{
		Page: c.Page,
		Row:  c.Row,
		BBox: c.BBox,
	}
}

// DefaultPipeline creates a pipeline with the standard stages.
func DefaultPipeline() *Pipeline {
	p := NewPipeline()
	p.Add(NewMerger())
	p.Add(NewLabeller())
	p.Add(NewSorter())
	return p
}
