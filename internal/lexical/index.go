package lexical

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

const (
	DefaultK1 = 1.5
	DefaultB  = 0.75
)

// BuildIndex constructs the inverted index for a batch of units sharing one
// granularity. Units whose content tokenizes to nothing are skipped and do
// not contribute to the average length. A batch with no indexable unit is an
// invalid-input failure, never a divide-by-zero.
func BuildIndex(units []domain.DocumentUnit, granularity domain.Granularity, k1, b float64) (*domain.InvertedIndex, error) {
	if !granularity.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build index", errors.New("unknown granularity"))
	}
	if k1 <= 0 {
		k1 = DefaultK1
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}

	postings := make(map[string][]domain.Posting)
	docFreq := make(map[string]int)
	documents := make([]string, 0, len(units))
	totalLength := 0

	for _, unit := range units {
		if unit.Granularity != granularity {
			return nil, domain.WrapError(domain.ErrInvalidInput, "build index",
				errors.New("mixed granularities in one batch"))
		}
		tokens := Tokenize(unit.Content)
		if len(tokens) == 0 {
			continue
		}

		termFreq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			termFreq[t]++
		}

		docLength := len(tokens)
		for term, tf := range termFreq {
			postings[term] = append(postings[term], domain.Posting{
				UnitID:        unit.ID,
				TermFrequency: tf,
				DocLength:     docLength,
			})
			docFreq[term]++
		}

		documents = append(documents, unit.ID)
		totalLength += docLength
	}

	if len(documents) == 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "build index",
			errors.New("no units with indexable terms"))
	}

	n := len(documents)
	idf := make(map[string]float64, len(docFreq))
	vocabulary := make([]string, 0, len(docFreq))
	for term, df := range docFreq {
		idf[term] = math.Log((float64(n) - float64(df) + 0.5) / (float64(df) + 0.5))
		vocabulary = append(vocabulary, term)
	}
	sort.Strings(vocabulary)

	return &domain.InvertedIndex{
		IndexType:      granularity,
		Documents:      documents,
		Postings:       postings,
		IDF:            idf,
		Vocabulary:     vocabulary,
		TotalDocuments: n,
		AvgDocLength:   float64(totalLength) / float64(n),
		Parameters:     domain.BM25Parameters{K1: k1, B: b},
		CreatedAt:      time.Now().UTC(),
	}, nil
}
