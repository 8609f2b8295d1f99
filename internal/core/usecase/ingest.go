package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
)

// Fragmenter splits a section's content into fragment-sized pieces when the
// extraction upstream only delivered sections.
type Fragmenter interface {
	Split(text string) []string
}

// IngestUnitsUseCase accepts batches of extracted units, derives fragments
// for sections that arrived without any, persists everything and signals the
// index builder.
type IngestUnitsUseCase struct {
	repo       ports.UnitRepository
	queue      ports.MessageQueue
	fragmenter Fragmenter
}

func NewIngestUnitsUseCase(repo ports.UnitRepository, queue ports.MessageQueue, fragmenter Fragmenter) *IngestUnitsUseCase {
	return &IngestUnitsUseCase{
		repo:       repo,
		queue:      queue,
		fragmenter: fragmenter,
	}
}

func (uc *IngestUnitsUseCase) IngestUnits(ctx context.Context, units []domain.DocumentUnit) (int, error) {
	if len(units) == 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "ingest units", errors.New("empty batch"))
	}

	documentID := ""
	now := time.Now().UTC()
	hasFragments := false

	for i := range units {
		u := &units[i]
		if strings.TrimSpace(u.Content) == "" {
			return 0, domain.WrapError(domain.ErrInvalidInput, "ingest units",
				fmt.Errorf("unit %d has empty content", i))
		}
		if !u.Granularity.Valid() {
			return 0, domain.WrapError(domain.ErrInvalidInput, "ingest units",
				fmt.Errorf("unit %d has granularity %q", i, u.Granularity))
		}
		if u.DocumentID == "" {
			return 0, domain.WrapError(domain.ErrInvalidInput, "ingest units",
				fmt.Errorf("unit %d has no document id", i))
		}
		if documentID == "" {
			documentID = u.DocumentID
		} else if u.DocumentID != documentID {
			return 0, domain.WrapError(domain.ErrInvalidInput, "ingest units",
				errors.New("batch spans multiple documents"))
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		if u.Granularity == domain.GranularityFragment {
			hasFragments = true
		}
		u.CreatedAt = now
	}

	if !hasFragments {
		units = append(units, uc.deriveFragments(units, now)...)
	}

	// Re-ingestion supersedes the document's previous units as a whole.
	if err := uc.repo.DeleteByDocument(ctx, documentID); err != nil {
		return 0, fmt.Errorf("supersede previous units: %w", err)
	}
	if err := uc.repo.CreateBatch(ctx, units); err != nil {
		return 0, fmt.Errorf("persist units: %w", err)
	}
	if err := uc.queue.PublishUnitsIngested(ctx, documentID); err != nil {
		return 0, fmt.Errorf("publish units ingested: %w", err)
	}
	return len(units), nil
}

func (uc *IngestUnitsUseCase) deriveFragments(units []domain.DocumentUnit, now time.Time) []domain.DocumentUnit {
	if uc.fragmenter == nil {
		return nil
	}
	var out []domain.DocumentUnit
	for _, section := range units {
		if section.Granularity != domain.GranularitySection {
			continue
		}
		for _, piece := range uc.fragmenter.Split(section.Content) {
			out = append(out, domain.DocumentUnit{
				ID:              uuid.NewString(),
				DocumentID:      section.DocumentID,
				Content:         piece,
				Granularity:     domain.GranularityFragment,
				ParentSectionID: section.ID,
				Title:           section.Title,
				PageNumber:      section.PageNumber,
				BBox:            section.BBox,
				CreatedAt:       now,
			})
		}
	}
	return out
}
