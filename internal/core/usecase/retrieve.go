package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
)

const (
	defaultTopK               = 5
	defaultScoreThreshold     = 0.3
	defaultRelevanceThreshold = 0.5
)

// RetrievalEngine answers semantic queries: embed, search, then rescore each
// hit with a lexical component so a high cosine score on unrelated wording
// does not pass as relevant on its own.
type RetrievalEngine struct {
	embedder           ports.Embedder
	store              ports.VectorStore
	topK               int
	scoreThreshold     float64
	relevanceThreshold float64
}

type RetrievalOptions struct {
	TopK               int
	ScoreThreshold     float64
	RelevanceThreshold float64
}

func NewRetrievalEngine(embedder ports.Embedder, store ports.VectorStore, options RetrievalOptions) *RetrievalEngine {
	topK := options.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	scoreThreshold := options.ScoreThreshold
	if scoreThreshold <= 0 {
		scoreThreshold = defaultScoreThreshold
	}
	relevanceThreshold := options.RelevanceThreshold
	if relevanceThreshold <= 0 {
		relevanceThreshold = defaultRelevanceThreshold
	}
	return &RetrievalEngine{
		embedder:           embedder,
		store:              store,
		topK:               topK,
		scoreThreshold:     scoreThreshold,
		relevanceThreshold: relevanceThreshold,
	}
}

func (e *RetrievalEngine) Retrieve(ctx context.Context, req domain.RetrievalRequest) ([]domain.ScoredResult, error) {
	query := strings.TrimSpace(req.Query)
	selected := strings.TrimSpace(req.SelectedText)
	if query == "" && selected == "" {
		return []domain.ScoredResult{}, nil
	}

	// Selected-text mode widens the embedded text, not the scoring formula.
	embedText := query
	if selected != "" {
		if embedText == "" {
			embedText = selected
		} else {
			embedText = embedText + "\n\n" + selected
		}
	}

	topK := req.TopK
	if topK <= 0 {
		topK = e.topK
	}
	// Zero keeps the configured floor, a negative value disables it so a
	// caller can ask for an unfiltered search.
	scoreThreshold := e.scoreThreshold
	switch {
	case req.ScoreThreshold > 0:
		scoreThreshold = req.ScoreThreshold
	case req.ScoreThreshold < 0:
		scoreThreshold = 0
	}

	vector, err := e.embedder.EmbedQuery(ctx, embedText)
	if err != nil {
		return []domain.ScoredResult{}, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.store.Search(ctx, vector, topK, scoreThreshold)
	if err != nil {
		return []domain.ScoredResult{}, fmt.Errorf("search vector store: %w", err)
	}

	return e.scoreHits(embedText, hits), nil
}

func (e *RetrievalEngine) scoreHits(query string, hits []domain.SearchHit) []domain.ScoredResult {
	corpus := make([]string, len(hits))
	for i, hit := range hits {
		corpus[i] = hit.Payload.Text
	}

	out := make([]domain.ScoredResult, 0, len(hits))
	for i, hit := range hits {
		similarity := clamp01(hit.Score)
		if hit.Payload.Degraded {
			// A placeholder vector's cosine score is noise; fall back to a
			// text-only similarity for the vector component.
			similarity = clamp01(tfidfCosine(query, corpus, i))
		}
		lexical := jaccardSimilarity(query, hit.Payload.Text)
		combined := (similarity + lexical) / 2

		out = append(out, domain.ScoredResult{
			ID:                hit.ID,
			Text:              hit.Payload.Text,
			URL:               hit.Payload.URL,
			Title:             hit.Payload.Title,
			Position:          hit.Payload.Position,
			TokenCount:        hit.Payload.TokenCount,
			Similarity:        similarity,
			LexicalSimilarity: lexical,
			CombinedRelevance: combined,
			IsRelevant:        combined >= e.relevanceThreshold,
			Degraded:          hit.Payload.Degraded,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CombinedRelevance != out[j].CombinedRelevance {
			return out[i].CombinedRelevance > out[j].CombinedRelevance
		}
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	return out
}
