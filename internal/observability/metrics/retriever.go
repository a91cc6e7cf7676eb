package metrics

import (
	"context"
	"time"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
)

// InstrumentRetriever wraps a retriever so every query lands in the
// retrieval duration and result-count histograms.
func (m *PipelineMetrics) InstrumentRetriever(service string, next ports.Retriever) ports.Retriever {
	return &observedRetriever{
		metrics: m,
		service: service,
		next:    next,
	}
}

type observedRetriever struct {
	metrics *PipelineMetrics
	service string
	next    ports.Retriever
}

func (r *observedRetriever) Retrieve(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredResult, error) {
	start := time.Now()
	results, err := r.next.Retrieve(ctx, req)
	r.metrics.ObserveRetrieval(r.service, len(results), time.Since(start))
	return results, err
}
