package embedding

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

type scriptedEmbedder struct {
	dimension  int
	failBatch  int
	callCount  int
	batchSizes []int
}

func (s *scriptedEmbedder) Dimension() int { return s.dimension }

func (s *scriptedEmbedder) EmbedDocuments(_ context.Context, texts []string) ([]domain.Embedding, error) {
	s.callCount++
	s.batchSizes = append(s.batchSizes, len(texts))
	if s.callCount == s.failBatch {
		return nil, errors.New("provider unavailable")
	}
	out := make([]domain.Embedding, len(texts))
	for i := range texts {
		out[i] = domain.Embedding{Vector: make([]float32, s.dimension)}
	}
	return out, nil
}

func (s *scriptedEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return make([]float32, s.dimension), nil
}

func TestEmbedDocumentsDegradesOnlyFailedBatch(t *testing.T) {
	primary := &scriptedEmbedder{dimension: 4, failBatch: 2}
	fallback := NewFallbackEmbedder(primary, 2, nil)

	texts := []string{"a", "b", "c", "d", "e"}
	embeddings, err := fallback.EmbedDocuments(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(embeddings) != len(texts) {
		t.Fatalf("expected %d embeddings, got %d", len(texts), len(embeddings))
	}

	wantDegraded := []bool{false, false, true, true, false}
	for i, e := range embeddings {
		if e.Degraded != wantDegraded[i] {
			t.Errorf("embedding %d degraded = %v, want %v", i, e.Degraded, wantDegraded[i])
		}
		if len(e.Vector) != 4 {
			t.Errorf("embedding %d dimension = %d, want 4", i, len(e.Vector))
		}
	}
	if primary.callCount != 3 {
		t.Fatalf("expected 3 provider calls, got %d", primary.callCount)
	}
}

func TestEmbedDocumentsPropagatesConfigurationError(t *testing.T) {
	primary := &failingEmbedder{err: domain.WrapError(domain.ErrConfig, "embed", errors.New("bad dimension"))}
	fallback := NewFallbackEmbedder(primary, 8, nil)

	_, err := fallback.EmbedDocuments(context.Background(), []string{"a"})
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

type failingEmbedder struct {
	err error
}

func (f *failingEmbedder) Dimension() int { return 4 }

func (f *failingEmbedder) EmbedDocuments(context.Context, []string) ([]domain.Embedding, error) {
	return nil, f.err
}

func (f *failingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return nil, f.err
}

func TestPlaceholderVectorDeterministicAndNormalized(t *testing.T) {
	first := PlaceholderVector("some chunk text", 1024)
	second := PlaceholderVector("some chunk text", 1024)
	other := PlaceholderVector("different text", 1024)

	if len(first) != 1024 {
		t.Fatalf("dimension = %d, want 1024", len(first))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("placeholder not deterministic at index %d", i)
		}
	}

	same := true
	for i := range first {
		if first[i] != other[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatalf("different texts produced identical placeholders")
	}

	var sumSquares float64
	for _, v := range first {
		sumSquares += float64(v) * float64(v)
	}
	if math.Abs(sumSquares-1.0) > 1e-3 {
		t.Fatalf("placeholder norm^2 = %f, want 1", sumSquares)
	}
}
