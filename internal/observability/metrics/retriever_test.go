package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

type retrieverFake struct {
	results []domain.ScoredResult
	err     error
}

func (f *retrieverFake) Retrieve(context.Context, domain.RetrievalRequest) ([]domain.ScoredResult, error) {
	return f.results, f.err
}

func TestInstrumentRetrieverRecordsHistograms(t *testing.T) {
	m := NewPipelineMetrics("validate-cli")
	fake := &retrieverFake{
		results: []domain.ScoredResult{
			{ID: "a", CombinedRelevance: 0.8},
			{ID: "b", CombinedRelevance: 0.4},
		},
	}
	retriever := m.InstrumentRetriever("validate-cli", fake)

	results, err := retriever.Retrieve(context.Background(), domain.RetrievalRequest{Query: "sample"})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	if got := testutil.CollectAndCount(m.retrievalDuration, "kp_retrieval_duration_seconds"); got != 1 {
		t.Fatalf("expected 1 duration series, got %d", got)
	}
	if got := testutil.CollectAndCount(m.retrievedResults, "kp_retrieval_results"); got != 1 {
		t.Fatalf("expected 1 results series, got %d", got)
	}
}

func TestInstrumentRetrieverRecordsFailedQueries(t *testing.T) {
	m := NewPipelineMetrics("validate-cli")
	fake := &retrieverFake{err: errors.New("search unavailable")}
	retriever := m.InstrumentRetriever("validate-cli", fake)

	if _, err := retriever.Retrieve(context.Background(), domain.RetrievalRequest{Query: "sample"}); err == nil {
		t.Fatalf("expected error passthrough")
	}
	if got := testutil.CollectAndCount(m.retrievalDuration, "kp_retrieval_duration_seconds"); got != 1 {
		t.Fatalf("expected failed query to be observed, got %d series", got)
	}
}
