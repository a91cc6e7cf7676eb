// Package bootstrap wires configuration into the concrete pipeline: Cohere
// embeddings behind the placeholder fallback, the Qdrant store, the Postgres
// ledger and the NATS queue.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rkudryashov/knowledge-pipeline/internal/config"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/usecase"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/embedding"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/embedding/cohere"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/extractor"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/queue/nats"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/repository/postgres"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/resilience"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/segmenter"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     *nats.Queue
	Registry  ports.DocumentRegistry
	Extractor ports.SourceExtractor
	Store     ports.VectorStore

	Ingestor  ports.DocumentIngestor
	Retriever ports.Retriever

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewDocumentRegistry(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	// Retry knobs come from the environment, breaker settings keep their
	// defaults so the circuit stays armed in every binary.
	retryCfg := resilience.DefaultConfig()
	retryCfg.MaxAttempts = cfg.RetryMaxAttempts
	retryCfg.BackoffBase = time.Duration(cfg.RetryBackoffBaseMS) * time.Millisecond
	retryCfg.BackoffMax = time.Duration(cfg.RetryBackoffMaxMS) * time.Millisecond
	executor := resilience.NewExecutor(retryCfg)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	cohereClient, err := cohere.New(cfg.CohereAPIKey, cfg.CohereModel, cfg.EmbedDimension, cohere.Options{
		BaseURL:           cfg.CohereBaseURL,
		BatchSize:         cfg.EmbedBatchSize,
		RequestsPerSecond: cfg.EmbedRateLimit,
		Executor:          executor,
	})
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init embedding client: %w", err)
	}
	embedder := embedding.NewFallbackEmbedder(cohereClient, cfg.EmbedBatchSize, logger)

	store := qdrant.NewWithOptions(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbedDimension, qdrant.Options{
		Executor: executor,
	})
	if err := store.EnsureCollection(ctx); err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	seg := segmenter.New(cfg.ChunkMinTokens, cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens, segmenter.NewTokenizer())

	ingestor := usecase.NewIngestionOrchestrator(seg, embedder, store, registry, logger, cfg.WorkerConcurrency)
	retriever := usecase.NewRetrievalEngine(embedder, store, usecase.RetrievalOptions{
		TopK:               cfg.RetrievalTopK,
		ScoreThreshold:     cfg.ScoreThreshold,
		RelevanceThreshold: cfg.RelevanceThreshold,
	})
	return &App{
		Config:    cfg,
		Logger:    logger,
		Queue:     queue,
		Registry:  registry,
		Extractor: extractor.New(cfg.SourceRoot),
		Store:     store,
		Ingestor:  ingestor,
		Retriever: retriever,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
