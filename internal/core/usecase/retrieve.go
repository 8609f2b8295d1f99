package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/docqa-engine/internal/core/domain"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
)

type RetrieveConfig struct {
	Understanding UnderstandingConfig
	Fusion        FusionConfig
	Rerank        RerankConfig
	Aggregation   AggregationConfig

	// ProviderTimeout bounds each retrieval source individually.
	ProviderTimeout time.Duration
	// IndexCacheTTL bounds how long a loaded index snapshot is reused
	// before the store is consulted again.
	IndexCacheTTL time.Duration
}

func DefaultRetrieveConfig() RetrieveConfig {
	return RetrieveConfig{
		Understanding:   DefaultUnderstandingConfig(),
		Fusion:          DefaultFusionConfig(),
		Rerank:          DefaultRerankConfig(),
		Aggregation:     DefaultAggregationConfig(),
		ProviderTimeout: 5 * time.Second,
		IndexCacheTTL:   30 * time.Second,
	}
}

// RetrieveUseCase is the retrieval and ranking engine: query understanding,
// parallel multi-source retrieval, fusion/dedup, optional section
// aggregation, and rerank with diversity control. All state it mutates is
// request-scoped; the loaded index snapshots are read-only.
type RetrieveUseCase struct {
	understanding *QueryUnderstanding
	units         ports.UnitRepository
	indexes       ports.IndexStore
	embedder      ports.Embedder
	vectorDB      ports.VectorSearcher
	graphDB       ports.GraphSearcher
	scorer        ports.RelevanceScorer

	cfg RetrieveConfig

	cacheMu    sync.RWMutex
	indexCache map[domain.Granularity]cachedIndex
}

type cachedIndex struct {
	idx      *domain.InvertedIndex
	loadedAt time.Time
}

// NewRetrieveUseCase wires the engine. scorer may be nil; the rerank stage
// then uses its deterministic fallback.
func NewRetrieveUseCase(
	units ports.UnitRepository,
	indexes ports.IndexStore,
	embedder ports.Embedder,
	vectorDB ports.VectorSearcher,
	graphDB ports.GraphSearcher,
	scorer ports.RelevanceScorer,
	cfg RetrieveConfig,
) *RetrieveUseCase {
	def := DefaultRetrieveConfig()
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.IndexCacheTTL <= 0 {
		cfg.IndexCacheTTL = def.IndexCacheTTL
	}
	return &RetrieveUseCase{
		understanding: NewQueryUnderstanding(cfg.Understanding),
		units:         units,
		indexes:       indexes,
		embedder:      embedder,
		vectorDB:      vectorDB,
		graphDB:       graphDB,
		scorer:        scorer,
		cfg:           cfg,
		indexCache:    make(map[domain.Granularity]cachedIndex, 2),
	}
}

func (uc *RetrieveUseCase) Retrieve(ctx context.Context, query string, limit int, filter domain.SearchFilter) (*domain.ResultSet, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve", errors.New("empty query"))
	}
	if limit <= 0 || limit > uc.cfg.Rerank.ResultCap {
		limit = uc.cfg.Rerank.ResultCap
		if limit <= 0 {
			limit = DefaultRerankConfig().ResultCap
		}
	}

	start := time.Now()

	uq := uc.understanding.Understand(query)
	uc.logStage(domain.StageUnderstood, start,
		"intent", string(uq.Intent),
		"category", string(uq.Category),
		"entities", len(uq.Entities),
	)

	candidates := uc.fanOut(ctx, uq, filter)
	uc.logStage(domain.StageRetrieving, start, "candidates", len(candidates))
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return emptyResult(), nil
	}

	fused := fuseCandidates(candidates, uq.Routing, uc.cfg.Fusion)
	uc.logStage(domain.StageFused, start, "candidates", len(fused))
	if len(fused) == 0 {
		return emptyResult(), nil
	}

	if uq.Routing.TargetGranularity == domain.GranularityFragment && uq.Intent == domain.IntentHybrid {
		fused = aggregateSections(fused, uc.cfg.Aggregation)
		uc.logStage(domain.StageAggregated, start, "sections", len(fused))
		if len(fused) == 0 {
			return emptyResult(), nil
		}
	}

	ranked := rerankAndDiversify(ctx, uc.scorer, query, fused, uc.cfg.Rerank)
	uc.logStage(domain.StageReranked, start, "candidates", len(ranked))
	if len(ranked) == 0 {
		return emptyResult(), nil
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	uc.logStage(domain.StageDelivered, start, "results", len(ranked))
	return &domain.ResultSet{Results: ranked, Stage: domain.StageDelivered}, nil
}

func emptyResult() *domain.ResultSet {
	return &domain.ResultSet{
		Results: []domain.Candidate{},
		Reason:  domain.ReasonNoMatchingContent,
		Stage:   domain.StageEmpty,
	}
}

func (uc *RetrieveUseCase) logStage(stage domain.QueryStage, start time.Time, attrs ...any) {
	logAttrs := append([]any{
		"stage", string(stage),
		"elapsed_ms", float64(time.Since(start).Microseconds()) / 1000.0,
	}, attrs...)
	slog.Debug("retrieve_stage", logAttrs...)
}

// loadIndex returns the current index snapshot for a granularity, reusing a
// cached copy within the TTL. The snapshot itself is immutable; a rebuild
// publishes a new one and readers pick it up on the next cache miss.
func (uc *RetrieveUseCase) loadIndex(ctx context.Context, granularity domain.Granularity) (*domain.InvertedIndex, error) {
	uc.cacheMu.RLock()
	cached, ok := uc.indexCache[granularity]
	uc.cacheMu.RUnlock()
	if ok && time.Since(cached.loadedAt) < uc.cfg.IndexCacheTTL {
		return cached.idx, nil
	}

	idx, err := uc.indexes.Load(ctx, granularity)
	if err != nil {
		// Serve a stale snapshot over failing the lexical source outright.
		if ok {
			slog.Warn("index_reload_failed", "granularity", string(granularity), "error", err)
			return cached.idx, nil
		}
		return nil, err
	}

	uc.cacheMu.Lock()
	uc.indexCache[granularity] = cachedIndex{idx: idx, loadedAt: time.Now()}
	uc.cacheMu.Unlock()
	return idx, nil
}
