package domain

// RetrievalRequest is an ephemeral query against the knowledge base.
// SelectedText optionally widens retrieval context with a user-highlighted
// excerpt; it changes the embedded text, not the scoring formula.
// A positive ScoreThreshold overrides the configured floor, zero keeps it,
// and a negative value removes the floor entirely.
type RetrievalRequest struct {
	Query          string
	SelectedText   string
	TopK           int
	ScoreThreshold float64
}

// ScoredResult is a retrieved chunk with its relevance breakdown.
// CombinedRelevance is the average of the raw vector similarity and the
// lexical similarity, always in [0,1].
type ScoredResult struct {
	ID                string  `json:"id"`
	Text              string  `json:"text"`
	URL               string  `json:"url"`
	Title             string  `json:"title"`
	Position          int     `json:"position"`
	TokenCount        int     `json:"token_count"`
	Similarity        float64 `json:"similarity"`
	LexicalSimilarity float64 `json:"lexical_similarity"`
	CombinedRelevance float64 `json:"combined_relevance"`
	IsRelevant        bool    `json:"is_relevant"`
	Degraded          bool    `json:"degraded"`
}

// SearchHit is the raw vector-store result before relevance scoring.
type SearchHit struct {
	ID      string
	Score   float64
	Payload PointPayload
}
