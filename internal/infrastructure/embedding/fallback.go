// Package embedding decorates an embedding provider with a degraded-mode
// fallback: when a batch cannot be embedded even after retries, the affected
// chunks receive deterministic placeholder vectors and are marked degraded so
// downstream consumers can tell a real similarity score from a synthetic one.
package embedding

import (
	"context"
	"log/slog"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
)

type FallbackEmbedder struct {
	primary   ports.Embedder
	batchSize int
	logger    *slog.Logger
}

func NewFallbackEmbedder(primary ports.Embedder, batchSize int, logger *slog.Logger) *FallbackEmbedder {
	if batchSize <= 0 {
		batchSize = 96
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackEmbedder{
		primary:   primary,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (e *FallbackEmbedder) Dimension() int {
	return e.primary.Dimension()
}

// EmbedDocuments embeds texts batch by batch. A batch that still fails after
// the provider's retries degrades to placeholders instead of failing the whole
// document; configuration errors and context cancellation stay fatal because
// retrying or degrading cannot fix them.
func (e *FallbackEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	dimension := e.primary.Dimension()
	out := make([]domain.Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		embeddings, err := e.primary.EmbedDocuments(ctx, batch)
		if err != nil {
			if domain.IsKind(err, domain.ErrConfig) || ctx.Err() != nil {
				return nil, err
			}
			e.logger.Warn("embedding batch degraded to placeholders",
				"batch_start", start,
				"batch_size", len(batch),
				"error", err,
			)
			for _, text := range batch {
				out = append(out, domain.Embedding{
					Vector:   PlaceholderVector(text, dimension),
					Degraded: true,
				})
			}
			continue
		}
		out = append(out, embeddings...)
	}
	return out, nil
}

// EmbedQuery never degrades: a placeholder query vector would return
// plausible-looking but meaningless results, which is worse than an error.
func (e *FallbackEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.primary.EmbedQuery(ctx, text)
}
