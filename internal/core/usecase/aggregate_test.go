package usecase

import (
	"testing"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

func TestAggregateGroupsFragmentsBySection(t *testing.T) {
	candidates := []domain.Candidate{
		{UnitID: "f1", SectionID: "s1", Title: "内毒素检测", Content: "endotoxin fragment one", Source: domain.SourceLexical, RawScore: 3.0},
		{UnitID: "f2", SectionID: "s1", Content: "endotoxin fragment two", Source: domain.SourceLexical, RawScore: 2.0},
		{UnitID: "f3", SectionID: "s2", Content: "purification fragment", Source: domain.SourceLexical, RawScore: 1.0},
	}

	sections := aggregateSections(candidates, DefaultAggregationConfig())
	if len(sections) != 2 {
		t.Fatalf("aggregated into %d sections, want 2", len(sections))
	}
	if sections[0].UnitID != "s1" {
		t.Fatalf("top section = %s, want s1 (higher average)", sections[0].UnitID)
	}
	if len(sections[0].Evidence) != 2 {
		t.Fatalf("s1 evidence = %d fragments, want 2", len(sections[0].Evidence))
	}
	if sections[0].Evidence[0].UnitID != "f1" {
		t.Fatalf("best evidence = %s, want f1", sections[0].Evidence[0].UnitID)
	}
	if sections[0].Title != "内毒素检测" {
		t.Fatalf("section title = %q, want best fragment's title", sections[0].Title)
	}
}

func TestAggregateKeepsTopEvidenceOnly(t *testing.T) {
	candidates := make([]domain.Candidate, 0, 5)
	for i := 0; i < 5; i++ {
		candidates = append(candidates, domain.Candidate{
			UnitID:    string(rune('a' + i)),
			SectionID: "s1",
			Content:   "fragment content",
			Source:    domain.SourceLexical,
			RawScore:  float64(i),
		})
	}

	sections := aggregateSections(candidates, DefaultAggregationConfig())
	if len(sections) != 1 {
		t.Fatalf("aggregated into %d sections, want 1", len(sections))
	}
	if len(sections[0].Evidence) != sectionEvidencePerGroup {
		t.Fatalf("evidence = %d fragments, want %d", len(sections[0].Evidence), sectionEvidencePerGroup)
	}
	if sections[0].Evidence[0].UnitID != "e" {
		t.Fatalf("best evidence = %s, want e", sections[0].Evidence[0].UnitID)
	}
}

func TestAggregatePassesThroughSectionlessCandidates(t *testing.T) {
	candidates := []domain.Candidate{
		{UnitID: "f1", SectionID: "s1", Content: "fragment with parent", Source: domain.SourceLexical, RawScore: 1.0},
		{UnitID: "g1", Content: "graph hit without section", Source: domain.SourceGraph, RawScore: 0.9},
	}

	out := aggregateSections(candidates, DefaultAggregationConfig())
	if len(out) != 2 {
		t.Fatalf("aggregated %d candidates, want 2 (one section + one passthrough)", len(out))
	}
	found := false
	for _, c := range out {
		if c.UnitID == "g1" {
			found = true
		}
	}
	if !found {
		t.Fatalf("sectionless candidate was dropped: %v", out)
	}
}

func TestAggregateBlendsLexicalAndVectorAverages(t *testing.T) {
	candidates := []domain.Candidate{
		// s1 strong in both sources, s2 strong in lexical only.
		{UnitID: "f1", SectionID: "s1", Content: "one", Source: domain.SourceLexical, RawScore: 2.0},
		{UnitID: "f2", SectionID: "s1", Content: "two", Source: domain.SourceVector, RawScore: 0.9},
		{UnitID: "f3", SectionID: "s2", Content: "three", Source: domain.SourceLexical, RawScore: 1.0},
		{UnitID: "f4", SectionID: "s2", Content: "four", Source: domain.SourceVector, RawScore: 0.1},
	}

	sections := aggregateSections(candidates, DefaultAggregationConfig())
	if len(sections) != 2 {
		t.Fatalf("aggregated into %d sections, want 2", len(sections))
	}
	if sections[0].UnitID != "s1" {
		t.Fatalf("top section = %s, want s1", sections[0].UnitID)
	}
	// s1 normalizes to 1.0 in both sources, s2 to 0.0.
	if sections[0].FusedScore != 1.0 {
		t.Fatalf("s1 score = %f, want 1.0", sections[0].FusedScore)
	}
	if sections[1].FusedScore != 0.0 {
		t.Fatalf("s2 score = %f, want 0.0", sections[1].FusedScore)
	}
}

func TestAggregateHonorsCap(t *testing.T) {
	candidates := make([]domain.Candidate, 0, 10)
	for i := 0; i < 10; i++ {
		candidates = append(candidates, domain.Candidate{
			UnitID:    string(rune('a' + i)),
			SectionID: "s" + string(rune('a'+i)),
			Content:   "fragment",
			Source:    domain.SourceLexical,
			RawScore:  float64(i),
		})
	}

	cfg := AggregationConfig{Cap: 3}
	sections := aggregateSections(candidates, cfg)
	if len(sections) != 3 {
		t.Fatalf("aggregated %d sections, want cap of 3", len(sections))
	}
}
