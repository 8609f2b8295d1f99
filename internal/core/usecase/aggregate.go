package usecase

import (
	"sort"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

const (
	sectionEvidencePerGroup = 3

	// Section scores are a fixed linear blend of the per-source section
	// scores; graph hits contribute through fusion, not here.
	sectionLexicalBlend = 0.5
	sectionVectorBlend  = 0.5
)

type AggregationConfig struct {
	// Cap bounds the number of promoted sections.
	Cap int
}

func DefaultAggregationConfig() AggregationConfig {
	return AggregationConfig{Cap: 50}
}

// aggregateSections promotes fragment-level candidates to section-level
// ones: fragments group by parent section, per-source scores are averaged
// then min-max normalized across sections, and each section keeps its top
// fragments as evidence. Candidates without a parent section pass through
// untouched.
func aggregateSections(candidates []domain.Candidate, cfg AggregationConfig) []domain.Candidate {
	if cfg.Cap <= 0 {
		cfg.Cap = DefaultAggregationConfig().Cap
	}

	type group struct {
		sectionID string
		fragments []domain.Candidate
		sourceSum map[domain.Source]float64
		sourceN   map[domain.Source]int
	}

	groups := make(map[string]*group)
	order := make([]string, 0)
	var passthrough []domain.Candidate

	for _, c := range candidates {
		if c.SectionID == "" {
			passthrough = append(passthrough, c)
			continue
		}
		g, ok := groups[c.SectionID]
		if !ok {
			g = &group{
				sectionID: c.SectionID,
				sourceSum: make(map[domain.Source]float64, 3),
				sourceN:   make(map[domain.Source]int, 3),
			}
			groups[c.SectionID] = g
			order = append(order, c.SectionID)
		}
		g.fragments = append(g.fragments, c)
		g.sourceSum[c.Source] += c.RawScore
		g.sourceN[c.Source]++
	}

	if len(groups) == 0 {
		return passthrough
	}

	// Per-source averages, then min-max across sections per source.
	avg := func(g *group, s domain.Source) (float64, bool) {
		n := g.sourceN[s]
		if n == 0 {
			return 0, false
		}
		return g.sourceSum[s] / float64(n), true
	}
	normalized := make(map[string]map[domain.Source]float64, len(groups))
	for _, s := range []domain.Source{domain.SourceLexical, domain.SourceVector} {
		var minAvg, maxAvg float64
		present := 0
		for _, id := range order {
			if a, ok := avg(groups[id], s); ok {
				if present == 0 {
					minAvg, maxAvg = a, a
				} else {
					if a < minAvg {
						minAvg = a
					}
					if a > maxAvg {
						maxAvg = a
					}
				}
				present++
			}
		}
		for _, id := range order {
			a, ok := avg(groups[id], s)
			if !ok {
				continue
			}
			if normalized[id] == nil {
				normalized[id] = make(map[domain.Source]float64, 2)
			}
			if maxAvg > minAvg {
				normalized[id][s] = (a - minAvg) / (maxAvg - minAvg)
			} else {
				normalized[id][s] = 0.5
			}
		}
	}

	sections := make([]domain.Candidate, 0, len(groups))
	for _, id := range order {
		g := groups[id]

		sort.SliceStable(g.fragments, func(i, j int) bool {
			if g.fragments[i].RawScore != g.fragments[j].RawScore {
				return g.fragments[i].RawScore > g.fragments[j].RawScore
			}
			return g.fragments[i].UnitID < g.fragments[j].UnitID
		})
		evidence := g.fragments
		if len(evidence) > sectionEvidencePerGroup {
			evidence = evidence[:sectionEvidencePerGroup]
		}

		score := sectionLexicalBlend*normalized[id][domain.SourceLexical] +
			sectionVectorBlend*normalized[id][domain.SourceVector]

		best := evidence[0]
		sections = append(sections, domain.Candidate{
			UnitID:     g.sectionID,
			SectionID:  g.sectionID,
			Title:      best.Title,
			Content:    best.Content,
			Source:     best.Source,
			RawScore:   score,
			FusedScore: score,
			Evidence:   append([]domain.Candidate(nil), evidence...),
			Metadata:   best.Metadata,
		})
	}

	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].FusedScore != sections[j].FusedScore {
			return sections[i].FusedScore > sections[j].FusedScore
		}
		return sections[i].UnitID < sections[j].UnitID
	})
	if len(sections) > cfg.Cap {
		sections = sections[:cfg.Cap]
	}

	return append(sections, passthrough...)
}
