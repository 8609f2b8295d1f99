package domain

import (
	"errors"
	"fmt"
	"time"
)

// Posting links a term to one unit with its in-unit frequency and that
// unit's token length.
type Posting struct {
	UnitID        string `json:"unit_id"`
	TermFrequency int    `json:"term_frequency"`
	DocLength     int    `json:"doc_length"`
}

type BM25Parameters struct {
	K1 float64 `json:"k1"`
	B  float64 `json:"b"`
}

// InvertedIndex is the self-contained lexical index for one
// (corpus, granularity) pair. It is built once per ingestion batch and
// read-only afterwards; queries never mutate it.
type InvertedIndex struct {
	IndexType      Granularity          `json:"index_type"`
	Documents      []string             `json:"documents"`
	Postings       map[string][]Posting `json:"inverted_index"`
	IDF            map[string]float64   `json:"idf_values"`
	Vocabulary     []string             `json:"vocabulary"`
	TotalDocuments int                  `json:"total_documents"`
	AvgDocLength   float64              `json:"avg_doc_length"`
	Parameters     BM25Parameters       `json:"parameters"`
	CreatedAt      time.Time            `json:"created_time"`
}

// RebuildReport summarizes one index rebuild for logging and metrics.
type RebuildReport struct {
	UnitsIndexed   map[Granularity]int
	VectorsIndexed int
}

// ScoredPosting is a ranked lexical hit.
type ScoredPosting struct {
	UnitID string
	Score  float64
}

// Validate checks internal consistency of a loaded index. A persisted index
// that fails these checks is corrupt and must not be queried.
func (idx *InvertedIndex) Validate() error {
	if idx == nil {
		return WrapError(ErrIndexCorrupt, "validate index", errors.New("nil index"))
	}
	if !idx.IndexType.Valid() {
		return WrapError(ErrIndexCorrupt, "validate index", fmt.Errorf("unknown index type %q", idx.IndexType))
	}
	if idx.TotalDocuments != len(idx.Documents) {
		return WrapError(ErrIndexCorrupt, "validate index",
			fmt.Errorf("total_documents=%d but documents=%d", idx.TotalDocuments, len(idx.Documents)))
	}
	if idx.TotalDocuments > 0 && idx.AvgDocLength <= 0 {
		return WrapError(ErrIndexCorrupt, "validate index",
			fmt.Errorf("avg_doc_length=%f for %d documents", idx.AvgDocLength, idx.TotalDocuments))
	}
	if len(idx.Vocabulary) != len(idx.Postings) {
		return WrapError(ErrIndexCorrupt, "validate index",
			fmt.Errorf("vocabulary=%d terms but postings=%d", len(idx.Vocabulary), len(idx.Postings)))
	}
	for term := range idx.Postings {
		if _, ok := idx.IDF[term]; !ok {
			return WrapError(ErrIndexCorrupt, "validate index", fmt.Errorf("term %q has postings but no idf", term))
		}
	}
	return nil
}
