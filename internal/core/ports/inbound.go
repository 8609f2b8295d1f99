package ports

import (
	"context"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
)

// Retriever is the inbound contract for the retrieval and ranking engine.
type Retriever interface {
	Retrieve(ctx context.Context, query string, limit int, filter domain.SearchFilter) (*domain.ResultSet, error)
}

// UnitIngestor accepts batches of extracted document units.
type UnitIngestor interface {
	IngestUnits(ctx context.Context, units []domain.DocumentUnit) (int, error)
}

// UnitReader is the inbound read model for persisted units.
type UnitReader interface {
	ListUnits(ctx context.Context, documentID string) ([]domain.DocumentUnit, error)
}

// IndexBuilder rebuilds the lexical indexes after an ingestion batch.
type IndexBuilder interface {
	RebuildForDocument(ctx context.Context, documentID string) (domain.RebuildReport, error)
}
