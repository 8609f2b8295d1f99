package ports

import (
	"context"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

// UnitRepository persists and reads document units.
type UnitRepository interface {
	CreateBatch(ctx context.Context, units []domain.DocumentUnit) error
	ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentUnit, error)
	ListByGranularity(ctx context.Context, granularity domain.Granularity) ([]domain.DocumentUnit, error)
	GetByIDs(ctx context.Context, ids []string) ([]domain.DocumentUnit, error)
	DeleteByDocument(ctx context.Context, documentID string) error
}

// IndexStore persists one inverted index per granularity. Load validates the
// stored artifact and reports corruption instead of returning a broken index.
type IndexStore interface {
	Save(ctx context.Context, idx *domain.InvertedIndex) error
	Load(ctx context.Context, granularity domain.Granularity) (*domain.InvertedIndex, error)
}

// Embedder encodes text into the vector space of the vector store.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher is the semantic retrieval provider.
type VectorSearcher interface {
	IndexUnits(ctx context.Context, units []domain.DocumentUnit, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, topK int, filter domain.SearchFilter) ([]domain.Candidate, error)
}

// GraphSearcher matches extracted entity names against the knowledge graph,
// returning connected node pairs or single-node hits when no relation exists.
type GraphSearcher interface {
	MatchEntities(ctx context.Context, names []string, topK int) ([]domain.Candidate, error)
}

// RelevanceScorer is the optional cross-encoding relevance model used by the
// rerank stage. Implementations return a score in [0,1].
type RelevanceScorer interface {
	Score(ctx context.Context, query, text string) (float64, error)
}

// MessageQueue carries unit-batch events from ingestion to the index builder.
type MessageQueue interface {
	PublishUnitsIngested(ctx context.Context, documentID string) error
	SubscribeUnitsIngested(ctx context.Context, handler func(context.Context, string) error) error
}
