package usecase

import (
	"sort"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/lexical"
)

const (
	// graphConfidenceBonus is added to fused scores of graph hits whose
	// structured confidence exceeds graphConfidenceFloor.
	graphConfidenceBonus = 0.15
	graphConfidenceFloor = 0.9
)

type FusionConfig struct {
	// NearDupThreshold is the token-set Jaccard similarity above which two
	// candidates are considered near-duplicates.
	NearDupThreshold float64
	// Cap bounds the fused list handed to downstream stages.
	Cap int
}

func DefaultFusionConfig() FusionConfig {
	return FusionConfig{
		NearDupThreshold: 0.9,
		Cap:              100,
	}
}

// fuseCandidates merges per-source candidate lists: exact dedup by chunk
// identity, near-duplicate dedup by content similarity, per-source min-max
// normalization, then weighted fusion. The output is sorted by fused score
// descending with ties broken by source priority then unit id; running the
// stage on its own output is a no-op.
func fuseCandidates(candidates []domain.Candidate, routing domain.RoutingConfig, cfg FusionConfig) []domain.Candidate {
	if cfg.NearDupThreshold <= 0 || cfg.NearDupThreshold > 1 {
		cfg.NearDupThreshold = DefaultFusionConfig().NearDupThreshold
	}
	if cfg.Cap <= 0 {
		cfg.Cap = DefaultFusionConfig().Cap
	}

	deduped := dedupExact(candidates)
	deduped = dedupNear(deduped, cfg.NearDupThreshold)
	normalizePerSource(deduped)

	for i := range deduped {
		c := &deduped[i]
		c.FusedScore = c.NormalizedScore * routing.Weight(c.Source)
		if c.Source == domain.SourceGraph && c.GraphConfidence > graphConfidenceFloor {
			c.FusedScore += graphConfidenceBonus
		}
	}

	sortByFused(deduped)
	if len(deduped) > cfg.Cap {
		deduped = deduped[:cfg.Cap]
	}
	return deduped
}

// dedupExact keeps, per stable chunk identity, the candidate with the
// highest raw score. First-seen order of the survivors is preserved.
func dedupExact(candidates []domain.Candidate) []domain.Candidate {
	byKey := make(map[string]int, len(candidates))
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := c.Key()
		if at, seen := byKey[key]; seen {
			if c.RawScore > out[at].RawScore {
				out[at] = c
			}
			continue
		}
		byKey[key] = len(out)
		out = append(out, c)
	}
	return out
}

// dedupNear drops the lower-scoring one of any pair whose content Jaccard
// similarity exceeds the threshold.
func dedupNear(candidates []domain.Candidate, threshold float64) []domain.Candidate {
	if len(candidates) < 2 {
		return candidates
	}

	// Compare higher-scoring candidates first so the survivor of a
	// near-duplicate pair is always the stronger one.
	order := make([]int, len(candidates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return candidates[order[a]].RawScore > candidates[order[b]].RawScore
	})

	tokenSets := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tokenSets[i] = lexical.TokenSet(c.Content)
	}

	dropped := make([]bool, len(candidates))
	for a := 0; a < len(order); a++ {
		i := order[a]
		if dropped[i] {
			continue
		}
		for b := a + 1; b < len(order); b++ {
			j := order[b]
			if dropped[j] {
				continue
			}
			if lexical.Jaccard(tokenSets[i], tokenSets[j]) >= threshold {
				dropped[j] = true
			}
		}
	}

	out := make([]domain.Candidate, 0, len(candidates))
	for i, c := range candidates {
		if !dropped[i] {
			out = append(out, c)
		}
	}
	return out
}

// normalizePerSource min-max normalizes raw scores within each source. A
// source with a single distinct score has no information to discriminate and
// maps to 0.5.
func normalizePerSource(candidates []domain.Candidate) {
	type bounds struct {
		min, max float64
		seen     bool
	}
	perSource := make(map[domain.Source]bounds, 3)
	for _, c := range candidates {
		b := perSource[c.Source]
		if !b.seen {
			b = bounds{min: c.RawScore, max: c.RawScore, seen: true}
		} else {
			if c.RawScore < b.min {
				b.min = c.RawScore
			}
			if c.RawScore > b.max {
				b.max = c.RawScore
			}
		}
		perSource[c.Source] = b
	}

	for i := range candidates {
		c := &candidates[i]
		b := perSource[c.Source]
		if b.max > b.min {
			c.NormalizedScore = (c.RawScore - b.min) / (b.max - b.min)
		} else {
			c.NormalizedScore = 0.5
		}
	}
}

func sortByFused(candidates []domain.Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].FusedScore != candidates[j].FusedScore {
			return candidates[i].FusedScore > candidates[j].FusedScore
		}
		if ri, rj := domain.SourceRank(candidates[i].Source), domain.SourceRank(candidates[j].Source); ri != rj {
			return ri < rj
		}
		return candidates[i].UnitID < candidates[j].UnitID
	})
}
