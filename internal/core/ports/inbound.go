package ports

import (
	"context"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document ingestion. Ingest
// always returns a report with counts and an error list; it only returns a
// non-nil error for failures that prevented producing a report at all.
type DocumentIngestor interface {
	Ingest(ctx context.Context, doc domain.Document) (domain.IngestionReport, error)
	IngestAll(ctx context.Context, docs []domain.Document) (domain.BatchIngestionReport, error)
}

// Retriever is the inbound contract for semantic queries. It never returns a
// nil slice: an empty query or a query with no qualifying hits yields [].
type Retriever interface {
	Retrieve(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredResult, error)
}

// RetrievalValidator runs batches of test queries and produces quality
// reports. Validation always produces a report, even if degraded.
type RetrievalValidator interface {
	Validate(ctx context.Context, queries []string) (domain.ValidationReport, error)
	ValidateLabeled(ctx context.Context, cases []domain.LabeledQuery) (domain.AccuracyReport, error)
}
