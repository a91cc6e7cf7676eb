package domain

import "time"

// IngestionError records a per-chunk or per-document failure that did not
// abort the run.
type IngestionError struct {
	ChunkID string `json:"chunk_id,omitempty"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// IngestionReport summarizes one document's trip through the pipeline.
// Partial failures land in Errors; the report itself is always produced.
type IngestionReport struct {
	ContentHash        string           `json:"content_hash"`
	URL                string           `json:"url"`
	ChunksCreated      int              `json:"chunks_created"`
	VectorsStored      int              `json:"vectors_stored"`
	SkippedDuplicates  int              `json:"skipped_duplicates"`
	DegradedEmbeddings int              `json:"degraded_embeddings"`
	Errors             []IngestionError `json:"errors"`
	Duration           time.Duration    `json:"duration"`
}

func (r IngestionReport) Failed() bool {
	return r.VectorsStored == 0 && r.SkippedDuplicates == 0 && len(r.Errors) > 0
}

// BatchIngestionReport merges per-document reports from one ingestion run.
type BatchIngestionReport struct {
	Documents          int               `json:"documents"`
	ChunksCreated      int               `json:"chunks_created"`
	VectorsStored      int               `json:"vectors_stored"`
	SkippedDuplicates  int               `json:"skipped_duplicates"`
	DegradedEmbeddings int               `json:"degraded_embeddings"`
	Errors             []IngestionError  `json:"errors"`
	Duration           time.Duration     `json:"duration"`
	Reports            []IngestionReport `json:"reports,omitempty"`
}

// QueryRelevance holds the per-query slice of a validation run.
type QueryRelevance struct {
	Query         string         `json:"query"`
	Results       []ScoredResult `json:"results"`
	RelevantCount int            `json:"relevant_count"`
	MeanRelevance float64        `json:"mean_relevance"`
	SearchTime    time.Duration  `json:"search_time"`
	Error         string         `json:"error,omitempty"`
}

// MetadataIssue names the payload fields missing from one result.
type MetadataIssue struct {
	ResultID string   `json:"result_id"`
	Missing  []string `json:"missing"`
}

// ValidationReport aggregates retrieval quality over a batch of queries.
// Produced once per validation run; immutable afterwards.
type ValidationReport struct {
	StartedAt        time.Time        `json:"started_at"`
	FinishedAt       time.Time        `json:"finished_at"`
	TotalQueries     int              `json:"total_queries"`
	TotalResults     int              `json:"total_results"`
	RelevantResults  int              `json:"relevant_results"`
	MeanRelevance    float64          `json:"mean_relevance"`
	PrecisionAtK     map[int]float64  `json:"precision_at_k"`
	MetadataAccuracy float64          `json:"metadata_accuracy"`
	MetadataIssues   []MetadataIssue  `json:"metadata_issues,omitempty"`
	PerQuery         []QueryRelevance `json:"per_query"`
}

// LabeledQuery pairs a query with the result expected somewhere in the
// returned set, identified by point id or by text substring.
type LabeledQuery struct {
	Query                 string `yaml:"query" json:"query"`
	ExpectedResultID      string `yaml:"expected_result_id,omitempty" json:"expected_result_id,omitempty"`
	ExpectedTextSubstring string `yaml:"expected_text_substring,omitempty" json:"expected_text_substring,omitempty"`
}

// LabeledOutcome records whether the expected result was retrieved and at
// which 1-indexed rank (0 when absent).
type LabeledOutcome struct {
	Query          string `json:"query"`
	Found          bool   `json:"found"`
	RankOfExpected int    `json:"rank_of_expected"`
	TopResultID    string `json:"top_result_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// AccuracyReport aggregates labeled-set validation: a query is correct when
// its expected result appears anywhere in the returned set.
type AccuracyReport struct {
	TotalQueries       int              `json:"total_queries"`
	CorrectRetrievals  int              `json:"correct_retrievals"`
	Accuracy           float64          `json:"accuracy"`
	MeanReciprocalRank float64          `json:"mean_reciprocal_rank"`
	Outcomes           []LabeledOutcome `json:"outcomes"`
}
