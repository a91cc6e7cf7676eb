package usecase

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
)

const defaultWorkerConcurrency = 4

// IngestionOrchestrator runs documents through segment -> embed -> store.
// Storage is idempotent: points are keyed by chunk-text hash, so re-running
// over unchanged content stores nothing new. Per-chunk failures are recorded
// in the report and never abort the document; per-document failures never
// abort a batch.
type IngestionOrchestrator struct {
	segmenter   ports.Segmenter
	embedder    ports.Embedder
	store       ports.VectorStore
	registry    ports.DocumentRegistry
	logger      *slog.Logger
	concurrency int
}

func NewIngestionOrchestrator(
	segmenter ports.Segmenter,
	embedder ports.Embedder,
	store ports.VectorStore,
	registry ports.DocumentRegistry,
	logger *slog.Logger,
	concurrency int,
) *IngestionOrchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = defaultWorkerConcurrency
	}
	return &IngestionOrchestrator{
		segmenter:   segmenter,
		embedder:    embedder,
		store:       store,
		registry:    registry,
		logger:      logger,
		concurrency: concurrency,
	}
}

func (uc *IngestionOrchestrator) Ingest(ctx context.Context, doc domain.Document) (domain.IngestionReport, error) {
	start := time.Now()
	report := domain.IngestionReport{
		ContentHash: doc.ContentHash,
		URL:         doc.URL,
		Errors:      []domain.IngestionError{},
	}
	finish := func() domain.IngestionReport {
		report.Duration = time.Since(start)
		return report
	}

	text := domain.NormalizeText(doc.RawText)
	if text == "" {
		report.Errors = append(report.Errors, domain.IngestionError{Stage: "normalize", Message: "empty document text"})
		return finish(), nil
	}
	if doc.ContentHash == "" {
		doc.ContentHash = domain.HashText(text)
		report.ContentHash = doc.ContentHash
	}

	// Ledger bookkeeping must not block ingestion: the vector store is the
	// source of truth.
	if err := uc.registry.RecordProcessing(ctx, doc); err != nil {
		uc.logger.Warn("registry record failed", "url", doc.URL, "error", err)
		report.Errors = append(report.Errors, domain.IngestionError{Stage: "registry", Message: err.Error()})
	}

	chunks := uc.segmenter.Segment(text)
	if len(chunks) == 0 {
		report.Errors = append(report.Errors, domain.IngestionError{Stage: "segment", Message: "segmentation produced zero chunks"})
		uc.finalize(ctx, &report)
		return finish(), nil
	}
	report.ChunksCreated = len(chunks)

	texts := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].ID = domain.ChunkID(doc.ContentHash, chunks[i].Position)
		chunks[i].DocumentHash = doc.ContentHash
		texts[i] = chunks[i].Text
	}

	embeddings, err := uc.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		report.Errors = append(report.Errors, domain.IngestionError{Stage: "embed", Message: err.Error()})
		uc.finalize(ctx, &report)
		if domain.IsKind(err, domain.ErrConfig) {
			return finish(), err
		}
		return finish(), ctx.Err()
	}
	if len(embeddings) != len(chunks) {
		report.Errors = append(report.Errors, domain.IngestionError{
			Stage:   "embed",
			Message: "embeddings/chunks count mismatch",
		})
		uc.finalize(ctx, &report)
		return finish(), nil
	}
	for _, e := range embeddings {
		if e.Degraded {
			report.DegradedEmbeddings++
		}
	}

	ids := make([]string, len(chunks))
	for i, chunk := range chunks {
		ids[i] = domain.PointID(domain.HashText(chunk.Text))
	}

	stored, err := uc.store.Exists(ctx, ids)
	if err != nil {
		// Worst case without the check is a redundant upsert of existing
		// points, which the content-addressed ids make harmless.
		uc.logger.Warn("existence check failed, upserting all chunks", "url", doc.URL, "error", err)
		stored = map[string]bool{}
	}

	now := time.Now().UTC()
	for i, chunk := range chunks {
		if stored[ids[i]] {
			report.SkippedDuplicates++
			continue
		}

		point := domain.StoredPoint{
			ID:     ids[i],
			Vector: embeddings[i].Vector,
			Payload: domain.PointPayload{
				URL:            doc.URL,
				Title:          doc.Title,
				Text:           chunk.Text,
				Position:       chunk.Position,
				TokenCount:     chunk.TokenCount,
				ContentHash:    domain.HashText(chunk.Text),
				Degraded:       embeddings[i].Degraded,
				SourceMetadata: doc.SourceMetadata,
				CreatedAt:      now,
			},
		}

		if err := uc.store.Upsert(ctx, []domain.StoredPoint{point}); err != nil {
			report.Errors = append(report.Errors, domain.IngestionError{
				ChunkID: chunk.ID,
				Stage:   "store",
				Message: err.Error(),
			})
			if ctx.Err() != nil {
				break
			}
			continue
		}
		report.VectorsStored++
	}

	uc.finalize(ctx, &report)
	uc.logger.Info("document ingested",
		"url", doc.URL,
		"chunks", report.ChunksCreated,
		"stored", report.VectorsStored,
		"skipped", report.SkippedDuplicates,
		"degraded", report.DegradedEmbeddings,
		"errors", len(report.Errors),
	)
	return finish(), ctx.Err()
}

func (uc *IngestionOrchestrator) finalize(ctx context.Context, report *domain.IngestionReport) {
	status := domain.StatusReady
	if report.Failed() {
		status = domain.StatusFailed
	}
	if err := uc.registry.RecordOutcome(ctx, *report, status); err != nil {
		uc.logger.Warn("registry outcome record failed", "hash", report.ContentHash, "error", err)
	}
}

// IngestAll processes documents through a bounded worker pool. Reports come
// back in input order.
func (uc *IngestionOrchestrator) IngestAll(ctx context.Context, docs []domain.Document) (domain.BatchIngestionReport, error) {
	start := time.Now()
	batch := domain.BatchIngestionReport{
		Documents: len(docs),
		Errors:    []domain.IngestionError{},
	}
	if len(docs) == 0 {
		batch.Duration = time.Since(start)
		return batch, nil
	}

	reports := make([]domain.IngestionReport, len(docs))
	semaphore := make(chan struct{}, uc.concurrency)
	var wg sync.WaitGroup

	for i, doc := range docs {
		wg.Add(1)
		go func(i int, doc domain.Document) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			report, err := uc.Ingest(ctx, doc)
			if err != nil && len(report.Errors) == 0 {
				report.Errors = append(report.Errors, domain.IngestionError{Stage: "ingest", Message: err.Error()})
			}
			reports[i] = report
		}(i, doc)
	}
	wg.Wait()

	for _, report := range reports {
		batch.ChunksCreated += report.ChunksCreated
		batch.VectorsStored += report.VectorsStored
		batch.SkippedDuplicates += report.SkippedDuplicates
		batch.DegradedEmbeddings += report.DegradedEmbeddings
		batch.Errors = append(batch.Errors, report.Errors...)
	}
	batch.Reports = reports
	batch.Duration = time.Since(start)
	return batch, ctx.Err()
}
