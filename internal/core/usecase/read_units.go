package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
)

// ReadUnitsUseCase serves the persisted units of one document.
type ReadUnitsUseCase struct {
	repo ports.UnitRepository
}

func NewReadUnitsUseCase(repo ports.UnitRepository) *ReadUnitsUseCase {
	return &ReadUnitsUseCase{repo: repo}
}

func (uc *ReadUnitsUseCase) ListUnits(ctx context.Context, documentID string) ([]domain.DocumentUnit, error) {
	units, err := uc.repo.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	if len(units) == 0 {
		return nil, domain.WrapError(domain.ErrNotFound, "list units",
			fmt.Errorf("document %q has no units", documentID))
	}
	return units, nil
}
