package lexical

import (
	"sort"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

// Search scores the index's postings against the query tokens with BM25 and
// returns the topK units in descending score order, ties broken by unit id
// ascending. Tokens absent from the vocabulary contribute nothing. The index
// is never mutated; repeated calls return identical results.
func Search(idx *domain.InvertedIndex, queryTokens []string, topK int) []domain.ScoredPosting {
	if idx == nil || idx.TotalDocuments == 0 || len(queryTokens) == 0 || topK <= 0 {
		return nil
	}

	k1 := idx.Parameters.K1
	b := idx.Parameters.B
	avg := idx.AvgDocLength

	scores := make(map[string]float64)
	seen := make(map[string]struct{}, len(queryTokens))
	for _, term := range queryTokens {
		// A repeated query token scores once.
		if _, dup := seen[term]; dup {
			continue
		}
		seen[term] = struct{}{}

		postings, ok := idx.Postings[term]
		if !ok {
			continue
		}
		idf := idx.IDF[term]
		for _, p := range postings {
			tf := float64(p.TermFrequency)
			norm := tf + k1*(1-b+b*float64(p.DocLength)/avg)
			scores[p.UnitID] += idf * (tf * (k1 + 1)) / norm
		}
	}

	if len(scores) == 0 {
		return nil
	}

	ranked := make([]domain.ScoredPosting, 0, len(scores))
	for unitID, score := range scores {
		ranked = append(ranked, domain.ScoredPosting{UnitID: unitID, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].UnitID < ranked[j].UnitID
	})

	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}
