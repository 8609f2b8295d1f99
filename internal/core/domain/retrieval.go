package domain

type Source string

const (
	SourceLexical Source = "lexical"
	SourceVector  Source = "vector"
	SourceGraph   Source = "graph"
)

// sourcePriority breaks score ties: structured sources win over fuzzier ones.
var sourcePriority = map[Source]int{
	SourceGraph:   0,
	SourceVector:  1,
	SourceLexical: 2,
}

func SourceRank(s Source) int {
	if p, ok := sourcePriority[s]; ok {
		return p
	}
	return len(sourcePriority)
}

type SearchFilter struct {
	Category    string
	DocumentID  string
	Granularity Granularity
}

type CandidateMetadata struct {
	PageNumber int      `json:"page_number,omitempty"`
	BBox       *BBox    `json:"bbox,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Candidate is a retrieval hit from one source. It lives only for the
// duration of a query; scores are filled in stage by stage.
type Candidate struct {
	UnitID          string            `json:"unit_id"`
	SectionID       string            `json:"section_id,omitempty"`
	Title           string            `json:"title,omitempty"`
	Content         string            `json:"content"`
	Source          Source            `json:"source"`
	RawScore        float64           `json:"raw_score"`
	NormalizedScore float64           `json:"normalized_score"`
	FusedScore      float64           `json:"fused_score"`
	RerankScore     float64           `json:"rerank_score,omitempty"`
	GraphConfidence float64           `json:"graph_confidence,omitempty"`
	Evidence        []Candidate       `json:"evidence,omitempty"`
	Metadata        CandidateMetadata `json:"metadata,omitempty"`
}

// Key identifies a chunk stably across sources for deduplication.
func (c Candidate) Key() string {
	if c.UnitID != "" {
		return c.UnitID
	}
	return c.SectionID + "|" + c.Content
}

const ReasonNoMatchingContent = "no matching content"

// ResultSet is the ordered outcome of a query. An empty set with a reason is
// a legitimate terminal state, not an error.
type ResultSet struct {
	Results []Candidate `json:"results"`
	Reason  string      `json:"reason,omitempty"`
	Stage   QueryStage  `json:"stage"`
}

func (rs *ResultSet) Empty() bool {
	return rs == nil || len(rs.Results) == 0
}

// QueryStage tracks a query's lifecycle through the engine. Each stage is a
// terminal success state feeding the next; any stage may short-circuit to
// StageEmpty when no candidates survive.
type QueryStage string

const (
	StageReceived   QueryStage = "received"
	StageUnderstood QueryStage = "understood"
	StageRetrieving QueryStage = "retrieving"
	StageFused      QueryStage = "fused"
	StageAggregated QueryStage = "aggregated"
	StageReranked   QueryStage = "reranked"
	StageDelivered  QueryStage = "delivered"
	StageEmpty      QueryStage = "empty"
)
