package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/lexical"
)

// fanOut issues the enabled providers concurrently, each under its own
// timeout. A provider failure degrades that source to an empty contribution;
// it never fails the query. Total latency is bounded by the slowest enabled
// provider.
func (uc *RetrieveUseCase) fanOut(ctx context.Context, uq domain.UnderstoodQuery, filter domain.SearchFilter) []domain.Candidate {
	rc := uq.Routing
	var lexicalHits, vectorHits, graphHits []domain.Candidate

	g, groupCtx := errgroup.WithContext(ctx)

	if rc.UseLexical {
		g.Go(func() error {
			lexicalHits = uc.callProvider(groupCtx, domain.SourceLexical, func(callCtx context.Context) ([]domain.Candidate, error) {
				return uc.searchLexical(callCtx, uq)
			})
			return nil
		})
	}
	if rc.UseVector {
		g.Go(func() error {
			vectorHits = uc.callProvider(groupCtx, domain.SourceVector, func(callCtx context.Context) ([]domain.Candidate, error) {
				return uc.searchVector(callCtx, uq, filter)
			})
			return nil
		})
	}
	if rc.UseGraph {
		g.Go(func() error {
			graphHits = uc.callProvider(groupCtx, domain.SourceGraph, func(callCtx context.Context) ([]domain.Candidate, error) {
				return uc.searchGraph(callCtx, uq)
			})
			return nil
		})
	}

	// Workers absorb their own failures; Wait only joins them.
	_ = g.Wait()

	out := make([]domain.Candidate, 0, len(lexicalHits)+len(vectorHits)+len(graphHits))
	out = append(out, lexicalHits...)
	out = append(out, vectorHits...)
	out = append(out, graphHits...)
	return out
}

// callProvider bounds one provider call with the configured timeout and maps
// any failure to an empty contribution.
func (uc *RetrieveUseCase) callProvider(
	ctx context.Context,
	source domain.Source,
	call func(context.Context) ([]domain.Candidate, error),
) []domain.Candidate {
	callCtx, cancel := context.WithTimeout(ctx, uc.cfg.ProviderTimeout)
	defer cancel()

	start := time.Now()
	hits, err := call(callCtx)
	if err != nil {
		slog.Warn("provider_degraded",
			"source", string(source),
			"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
			"error", err,
		)
		return nil
	}

	for i := range hits {
		hits[i].Source = source
	}
	return hits
}

func (uc *RetrieveUseCase) searchLexical(ctx context.Context, uq domain.UnderstoodQuery) ([]domain.Candidate, error) {
	idx, err := uc.loadIndex(ctx, uq.Routing.TargetGranularity)
	if err != nil {
		return nil, fmt.Errorf("load lexical index: %w", err)
	}

	tokens := append([]string(nil), uq.Tokens...)
	for _, expansion := range uq.Expansions {
		tokens = append(tokens, lexical.Tokenize(expansion)...)
	}

	ranked := lexical.Search(idx, tokens, uq.Routing.TopKPerSource)
	if len(ranked) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(ranked))
	for _, p := range ranked {
		ids = append(ids, p.UnitID)
	}
	units, err := uc.units.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("hydrate lexical hits: %w", err)
	}
	byID := make(map[string]domain.DocumentUnit, len(units))
	for _, u := range units {
		byID[u.ID] = u
	}

	out := make([]domain.Candidate, 0, len(ranked))
	for _, p := range ranked {
		unit, ok := byID[p.UnitID]
		if !ok {
			continue
		}
		out = append(out, candidateFromUnit(unit, p.Score))
	}
	return out, nil
}

func (uc *RetrieveUseCase) searchVector(ctx context.Context, uq domain.UnderstoodQuery, filter domain.SearchFilter) ([]domain.Candidate, error) {
	vector, err := uc.embedder.EmbedQuery(ctx, uq.Raw)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	filter.Granularity = uq.Routing.TargetGranularity
	hits, err := uc.vectorDB.Search(ctx, vector, uq.Routing.TopKPerSource, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return hits, nil
}

func (uc *RetrieveUseCase) searchGraph(ctx context.Context, uq domain.UnderstoodQuery) ([]domain.Candidate, error) {
	names := uq.EntityNames()
	if len(names) == 0 {
		return nil, nil
	}
	hits, err := uc.graphDB.MatchEntities(ctx, names, uq.Routing.TopKPerSource)
	if err != nil {
		return nil, fmt.Errorf("graph match: %w", err)
	}
	return hits, nil
}

func candidateFromUnit(unit domain.DocumentUnit, score float64) domain.Candidate {
	sectionID := unit.ParentSectionID
	if unit.Granularity == domain.GranularitySection {
		sectionID = unit.ID
	}
	return domain.Candidate{
		UnitID:    unit.ID,
		SectionID: sectionID,
		Title:     unit.Title,
		Content:   unit.Content,
		RawScore:  score,
		Metadata: domain.CandidateMetadata{
			PageNumber: unit.PageNumber,
			BBox:       unit.BBox,
		},
	}
}
