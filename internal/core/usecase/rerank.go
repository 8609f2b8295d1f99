package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
	"github.com/kirillkom/docqa-engine/internal/lexical"
)

type RerankConfig struct {
	// MinCandidates is the short-circuit bound: at or below it the rerank
	// stage returns its input unchanged.
	MinCandidates int
	// PriorBlend weighs the fused score against the rerank score.
	PriorBlend float64
	// MMRLambda balances relevance against similarity to already selected
	// results during diversity selection.
	MMRLambda float64
	// ResultCap bounds the final diversity-controlled list.
	ResultCap int

	// Quality-filter bounds.
	MinContentRunes    int
	MinUniqueWordRatio float64
}

func DefaultRerankConfig() RerankConfig {
	return RerankConfig{
		MinCandidates:      10,
		PriorBlend:         0.7,
		MMRLambda:          0.7,
		ResultCap:          20,
		MinContentRunes:    20,
		MinUniqueWordRatio: 0.2,
	}
}

// noiseMarkers flag boilerplate fragments that carry no answerable content.
var noiseMarkers = []string{
	"lorem ipsum",
	"confidential - do not distribute",
	"this page intentionally left blank",
	"目录",
	"本页无正文",
}

// rerankAndDiversify re-scores the fused candidates with the relevance model
// (or its deterministic fallback), drops low-quality candidates, and selects
// a diverse final list via maximal marginal relevance.
func rerankAndDiversify(
	ctx context.Context,
	scorer ports.RelevanceScorer,
	query string,
	candidates []domain.Candidate,
	cfg RerankConfig,
) []domain.Candidate {
	def := DefaultRerankConfig()
	if cfg.MinCandidates <= 0 {
		cfg.MinCandidates = def.MinCandidates
	}
	if cfg.PriorBlend <= 0 || cfg.PriorBlend >= 1 {
		cfg.PriorBlend = def.PriorBlend
	}
	if cfg.MMRLambda <= 0 || cfg.MMRLambda >= 1 {
		cfg.MMRLambda = def.MMRLambda
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = def.ResultCap
	}
	if cfg.MinContentRunes <= 0 {
		cfg.MinContentRunes = def.MinContentRunes
	}
	if cfg.MinUniqueWordRatio <= 0 {
		cfg.MinUniqueWordRatio = def.MinUniqueWordRatio
	}

	if len(candidates) <= cfg.MinCandidates {
		return candidates
	}

	reranked := rerankCandidates(ctx, scorer, query, candidates, cfg.PriorBlend)
	filtered := filterQuality(reranked, cfg)
	return selectDiverse(filtered, cfg.MMRLambda, cfg.ResultCap)
}

func rerankCandidates(
	ctx context.Context,
	scorer ports.RelevanceScorer,
	query string,
	candidates []domain.Candidate,
	priorBlend float64,
) []domain.Candidate {
	out := make([]domain.Candidate, len(candidates))
	copy(out, candidates)

	queryTokens := lexical.TokenSet(query)
	prior := normalizedPriors(out)

	for i := range out {
		c := &out[i]
		rerank, ok := modelScore(ctx, scorer, query, c.Content)
		if !ok {
			rerank = fallbackRelevance(queryTokens, c)
		}
		c.RerankScore = rerank
		c.FusedScore = priorBlend*prior[i] + (1-priorBlend)*rerank
	}

	sortByFused(out)
	return out
}

func modelScore(ctx context.Context, scorer ports.RelevanceScorer, query, text string) (float64, bool) {
	if scorer == nil {
		return 0, false
	}
	score, err := scorer.Score(ctx, query, text)
	if err != nil {
		slog.Warn("relevance_model_degraded", "error", err)
		return 0, false
	}
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, true
}

// fallbackRelevance is the deterministic stand-in for the relevance model:
// title-term overlap, content-term overlap, and length/source heuristics.
func fallbackRelevance(queryTokens map[string]struct{}, c *domain.Candidate) float64 {
	titleOverlap := overlapRatio(queryTokens, lexical.TokenSet(c.Title))
	contentOverlap := overlapRatio(queryTokens, lexical.TokenSet(c.Content))

	lengthScore := 0.0
	runes := len([]rune(c.Content))
	switch {
	case runes >= 80 && runes <= 1200:
		lengthScore = 1.0
	case runes > 1200:
		lengthScore = 0.5
	case runes >= 30:
		lengthScore = 0.4
	}

	sourceScore := 1.0 - float64(domain.SourceRank(c.Source))/3.0

	return 0.35*titleOverlap + 0.35*contentOverlap + 0.2*lengthScore + 0.1*sourceScore
}

func overlapRatio(query, doc map[string]struct{}) float64 {
	if len(query) == 0 || len(doc) == 0 {
		return 0
	}
	matches := 0
	for t := range query {
		if _, ok := doc[t]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// normalizedPriors min-max normalizes the incoming fused scores so the blend
// operates on comparable magnitudes.
func normalizedPriors(candidates []domain.Candidate) []float64 {
	out := make([]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}
	minScore, maxScore := candidates[0].FusedScore, candidates[0].FusedScore
	for _, c := range candidates[1:] {
		if c.FusedScore < minScore {
			minScore = c.FusedScore
		}
		if c.FusedScore > maxScore {
			maxScore = c.FusedScore
		}
	}
	for i, c := range candidates {
		if maxScore > minScore {
			out[i] = (c.FusedScore - minScore) / (maxScore - minScore)
		} else if c.FusedScore > 0 {
			out[i] = 1
		}
	}
	return out
}

func filterQuality(candidates []domain.Candidate, cfg RerankConfig) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if len([]rune(c.Content)) < cfg.MinContentRunes {
			continue
		}
		if uniqueWordRatio(c.Content) < cfg.MinUniqueWordRatio {
			continue
		}
		if matchesNoise(c.Content) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func uniqueWordRatio(content string) float64 {
	tokens := lexical.Tokenize(content)
	if len(tokens) == 0 {
		return 0
	}
	distinct := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		distinct[t] = struct{}{}
	}
	return float64(len(distinct)) / float64(len(tokens))
}

func matchesNoise(content string) bool {
	lowered := strings.ToLower(content)
	for _, marker := range noiseMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}

// selectDiverse greedily builds the output via maximal marginal relevance:
// each step takes the remaining candidate maximizing
// lambda*relevance - (1-lambda)*maxSimilarityToSelected.
func selectDiverse(candidates []domain.Candidate, lambda float64, limit int) []domain.Candidate {
	if len(candidates) == 0 {
		return candidates
	}
	if limit > len(candidates) {
		limit = len(candidates)
	}

	// Relevance operates on rank-normalized fused scores.
	relevance := normalizedPriors(candidates)

	tokenSets := make([]map[string]struct{}, len(candidates))
	for i, c := range candidates {
		tokenSets[i] = lexical.TokenSet(c.Content)
	}

	selected := make([]domain.Candidate, 0, limit)
	selectedSets := make([]map[string]struct{}, 0, limit)
	remaining := make([]int, len(candidates))
	for i := range remaining {
		remaining[i] = i
	}

	for len(selected) < limit && len(remaining) > 0 {
		bestAt := 0
		bestScore := mmrScore(relevance, tokenSets, selectedSets, remaining[0], lambda)
		for at := 1; at < len(remaining); at++ {
			score := mmrScore(relevance, tokenSets, selectedSets, remaining[at], lambda)
			if score > bestScore {
				bestScore = score
				bestAt = at
			}
		}
		idx := remaining[bestAt]
		selected = append(selected, candidates[idx])
		selectedSets = append(selectedSets, tokenSets[idx])
		remaining = append(remaining[:bestAt], remaining[bestAt+1:]...)
	}
	return selected
}

func mmrScore(relevance []float64, tokenSets, selectedSets []map[string]struct{}, idx int, lambda float64) float64 {
	maxSim := 0.0
	for _, sel := range selectedSets {
		if sim := lexical.Jaccard(tokenSets[idx], sel); sim > maxSim {
			maxSim = sim
		}
	}
	return lambda*relevance[idx] - (1-lambda)*maxSim
}
