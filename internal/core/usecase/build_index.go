package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
	"github.com/kirillkom/docqa-engine/internal/lexical"
)

// BuildIndexUseCase rebuilds the lexical indexes and the vector collection
// after an ingestion batch. Rebuilds are corpus-wide: the index snapshot for
// each granularity covers every persisted unit, so a document-level event
// triggers a full rebuild. Exactly one builder instance writes a given index
// version; readers keep serving the previously published snapshot.
type BuildIndexUseCase struct {
	repo     ports.UnitRepository
	indexes  ports.IndexStore
	embedder ports.Embedder
	vectorDB ports.VectorSearcher

	k1 float64
	b  float64
}

func NewBuildIndexUseCase(
	repo ports.UnitRepository,
	indexes ports.IndexStore,
	embedder ports.Embedder,
	vectorDB ports.VectorSearcher,
	k1, b float64,
) *BuildIndexUseCase {
	if k1 <= 0 {
		k1 = lexical.DefaultK1
	}
	if b <= 0 || b > 1 {
		b = lexical.DefaultB
	}
	return &BuildIndexUseCase{
		repo:     repo,
		indexes:  indexes,
		embedder: embedder,
		vectorDB: vectorDB,
		k1:       k1,
		b:        b,
	}
}

func (uc *BuildIndexUseCase) RebuildForDocument(ctx context.Context, documentID string) (domain.RebuildReport, error) {
	report := domain.RebuildReport{
		UnitsIndexed: make(map[domain.Granularity]int, 2),
	}
	for _, granularity := range []domain.Granularity{domain.GranularitySection, domain.GranularityFragment} {
		n, err := uc.rebuildGranularity(ctx, granularity)
		if err != nil {
			return report, fmt.Errorf("rebuild %s index: %w", granularity, err)
		}
		report.UnitsIndexed[granularity] = n
	}
	vectors, err := uc.reindexVectors(ctx, documentID)
	if err != nil {
		return report, fmt.Errorf("reindex vectors: %w", err)
	}
	report.VectorsIndexed = vectors
	return report, nil
}

func (uc *BuildIndexUseCase) rebuildGranularity(ctx context.Context, granularity domain.Granularity) (int, error) {
	units, err := uc.repo.ListByGranularity(ctx, granularity)
	if err != nil {
		return 0, fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		slog.Info("index_rebuild_skipped", "granularity", string(granularity), "reason", "no units")
		return 0, nil
	}

	idx, err := lexical.BuildIndex(units, granularity, uc.k1, uc.b)
	if err != nil {
		return 0, err
	}
	if err := uc.indexes.Save(ctx, idx); err != nil {
		return 0, fmt.Errorf("persist index: %w", err)
	}

	slog.Info("index_built",
		"granularity", string(granularity),
		"documents", idx.TotalDocuments,
		"vocabulary", len(idx.Vocabulary),
		"avg_doc_length", idx.AvgDocLength,
	)
	return idx.TotalDocuments, nil
}

// reindexVectors embeds the changed document's fragments and upserts them
// into the vector store.
func (uc *BuildIndexUseCase) reindexVectors(ctx context.Context, documentID string) (int, error) {
	units, err := uc.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return 0, fmt.Errorf("list document units: %w", err)
	}

	fragments := make([]domain.DocumentUnit, 0, len(units))
	texts := make([]string, 0, len(units))
	for _, u := range units {
		if u.Granularity != domain.GranularityFragment {
			continue
		}
		fragments = append(fragments, u)
		texts = append(texts, u.Content)
	}
	if len(fragments) == 0 {
		return 0, nil
	}

	vectors, err := uc.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed fragments: %w", err)
	}
	if len(vectors) != len(fragments) {
		return 0, domain.WrapError(domain.ErrInvalidInput, "embed fragments",
			fmt.Errorf("vectors/fragments mismatch: %d/%d", len(vectors), len(fragments)))
	}
	if err := uc.vectorDB.IndexUnits(ctx, fragments, vectors); err != nil {
		return 0, fmt.Errorf("index fragments in vector db: %w", err)
	}
	return len(fragments), nil
}
