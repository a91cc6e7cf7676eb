package ports

import (
	"context"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

// Segmenter splits normalized document text into bounded, overlapping
// chunks. Pure: malformed input degrades, it does not fail.
type Segmenter interface {
	Segment(text string) []domain.Chunk
}

// Embedder converts text to fixed-length vectors. EmbedDocuments returns one
// Embedding per input text in order; implementations decide batching, retry
// and fallback policy. Dimension reports the collection's fixed vector size.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([]domain.Embedding, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorStore persists (id, vector, payload) triples and serves cosine
// nearest-neighbor search with a minimum-score floor.
type VectorStore interface {
	EnsureCollection(ctx context.Context) error
	Exists(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, points []domain.StoredPoint) error
	Search(ctx context.Context, vector []float32, topK int, scoreThreshold float64) ([]domain.SearchHit, error)
	Count(ctx context.Context) (int, error)
}

// DocumentRegistry is the ingestion ledger: per-document status and counts,
// keyed by content hash. Bookkeeping only; the vector store stays the source
// of truth.
type DocumentRegistry interface {
	RecordProcessing(ctx context.Context, doc domain.Document) error
	RecordOutcome(ctx context.Context, report domain.IngestionReport, status domain.DocumentStatus) error
	GetByHash(ctx context.Context, contentHash string) (*domain.DocumentRecord, error)
}

// IngestRequest travels over the queue from producers to the worker.
type IngestRequest struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Path  string `json:"path"`
}

// IngestQueue decouples document submission from processing.
type IngestQueue interface {
	PublishIngestRequest(ctx context.Context, req IngestRequest) error
	SubscribeIngestRequests(ctx context.Context, handler func(context.Context, IngestRequest) error) error
}

// SourceExtractor loads a local source file into plain text.
type SourceExtractor interface {
	Extract(ctx context.Context, path string) (string, error)
}
