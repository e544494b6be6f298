package assembler

import (
	"sort"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// Merger deduplicates candidates by source ID. A source may legitimately
// appear once per clause type within one hybrid query; the highest-scoring
// occurrence wins, clause types union, and the earliest input position is
// retained for stable ordering.
type Merger struct{}

// NewMerger creates the dedupe stage.
func NewMerger() *Merger { return &Merger{} }

func (m *Merger) Name() string { return "merge" }
func (m *Merger) Order() int   { return 10 }

func (m *Merger) Process(_ domain.SearchStrategy, candidates []*Candidate) []*Candidate {
	byID := make(map[string]*Candidate, len(candidates))
	out := make([]*Candidate, 0, len(candidates))

	for _, c := range candidates {
		existing, ok := byID[c.SourceID]
		if !ok {
			byID[c.SourceID] = c
			out = append(out, c)
			continue
		}

		for ct := range c.Clauses {
			existing.Clauses[ct] = struct{}{}
		}
		if c.FirstSeen < existing.FirstSeen {
			existing.FirstSeen = c.FirstSeen
		}
		if c.Score > existing.Score {
			existing.Score = c.Score
			existing.Page = c.Page
			existing.Row = c.Row
			existing.BBox = c.BBox
		}
	}

	return out
}

// Labeller assigns the match-type provenance label: the query-level strategy
// by default, hybrid whenever a candidate matched more than one clause type.
type Labeller struct{}

// NewLabeller creates the labelling stage.
func NewLabeller() *Labeller { return &Labeller{} }

func (l *Labeller) Name() string { return "label" }
func (l *Labeller) Order() int   { return 20 }

func (l *Labeller) Process(strategy domain.SearchStrategy, candidates []*Candidate) []*Candidate {
	base := matchTypeFor(strategy)
	for _, c := range candidates {
		if len(c.Clauses) > 1 {
			c.MatchType = domain.MatchHybrid
			continue
		}
		c.MatchType = base
	}
	return candidates
}

func matchTypeFor(strategy domain.SearchStrategy) domain.MatchType {
	switch strategy {
	case domain.StrategyExact:
		return domain.MatchExact
	case domain.StrategySemantic:
		return domain.MatchSemantic
	default:
		return domain.MatchHybrid
	}
}

// Sorter orders candidates by descending score; equal scores keep their
// first-seen input order so identical inputs always produce identical output.
type Sorter struct{}

// NewSorter creates the ordering stage.
func NewSorter() *Sorter { return &Sorter{} }

func (s *Sorter) Name() string { return "sort" }
func (s *Sorter) Order() int   { return 30 }

func (s *Sorter) Process(_ domain.SearchStrategy, candidates []*Candidate) []*Candidate {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].FirstSeen < candidates[j].FirstSeen
	})
	return candidates
}
