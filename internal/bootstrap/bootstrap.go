package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/docqa-engine/internal/config"
	"github.com/kirillkom/docqa-engine/internal/core/ports"
	"github.com/kirillkom/docqa-engine/internal/core/usecase"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/chunking"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa-engine/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Queue      ports.MessageQueue
	Repo       ports.UnitRepository
	RetrieveUC ports.Retriever
	IngestUC   ports.UnitIngestor
	ReadUC     ports.UnitReader
	BuildUC    ports.IndexBuilder

	closeFn func(context.Context)
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewUnitRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	indexes := postgres.NewIndexStore(db)

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaRerankModel, cfg.OllamaEmbedModel).
		WithExecutor(executor)
	embedder := ollama.NewEmbedder(ollamaClient)
	var scorer ports.RelevanceScorer
	if cfg.RerankModelEnabled {
		scorer = ollama.NewScorer(ollamaClient)
	}

	vectorDB := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)

	graphDB, err := neo4j.New(ctx, cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
	if err != nil {
		return nil, fmt.Errorf("init graph store: %w", err)
	}

	splitter := chunking.NewSplitter(cfg.FragmentSize, cfg.FragmentOverlap)

	retrieveUC := usecase.NewRetrieveUseCase(repo, indexes, embedder, vectorDB, graphDB, scorer, retrieveConfig(cfg))
	ingestUC := usecase.NewIngestUnitsUseCase(repo, queue, splitter)
	readUC := usecase.NewReadUnitsUseCase(repo)
	buildUC := usecase.NewBuildIndexUseCase(repo, indexes, embedder, vectorDB, cfg.BM25K1, cfg.BM25B)

	return &App{
		Config: cfg,
		Queue:  queue,
		Repo:   repo,

		RetrieveUC: retrieveUC,
		IngestUC:   ingestUC,
		ReadUC:     readUC,
		BuildUC:    buildUC,

		closeFn: func(ctx context.Context) {
			queue.Close()
			_ = graphDB.Close(ctx)
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close(ctx context.Context) {
	if a.closeFn != nil {
		a.closeFn(ctx)
	}
}

func retrieveConfig(cfg config.Config) usecase.RetrieveConfig {
	return usecase.RetrieveConfig{
		Understanding: usecase.UnderstandingConfig{
			TitleMaxTokens:  usecase.DefaultUnderstandingConfig().TitleMaxTokens,
			TitleOverlap:    usecase.DefaultUnderstandingConfig().TitleOverlap,
			FragmentOverlap: usecase.DefaultUnderstandingConfig().FragmentOverlap,
			TopKPerSource:   cfg.TopKPerSource,
			WeightLexical:   cfg.WeightLexical,
			WeightVector:    cfg.WeightVector,
			WeightGraph:     cfg.WeightGraph,
		},
		Fusion: usecase.FusionConfig{
			NearDupThreshold: cfg.NearDupThreshold,
			Cap:              cfg.FusionCap,
		},
		Rerank: usecase.RerankConfig{
			MinCandidates:      cfg.RerankMinCandidates,
			PriorBlend:         cfg.RerankPriorBlend,
			MMRLambda:          cfg.MMRLambda,
			ResultCap:          cfg.ResultCap,
			MinContentRunes:    cfg.MinContentRunes,
			MinUniqueWordRatio: cfg.MinUniqueWordRatio,
		},
		Aggregation: usecase.AggregationConfig{
			Cap: cfg.SectionCap,
		},
		ProviderTimeout: time.Duration(cfg.ProviderTimeoutSeconds) * time.Second,
		IndexCacheTTL:   time.Duration(cfg.IndexCacheTTLSeconds) * time.Second,
	}
}
