package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
)

var precisionKs = []int{1, 3, 5}

// ValidationHarness measures retrieval quality over fixed query batches.
// Queries run sequentially so that runs against the same collection are
// reproducible; a query that errors contributes a zero-result entry instead
// of aborting the batch.
type ValidationHarness struct {
	retriever ports.Retriever
	topK      int
}

func NewValidationHarness(retriever ports.Retriever, topK int) *ValidationHarness {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &ValidationHarness{retriever: retriever, topK: topK}
}

func (h *ValidationHarness) Validate(ctx context.Context, queries []string) (domain.ValidationReport, error) {
	report := domain.ValidationReport{
		StartedAt:    time.Now().UTC(),
		TotalQueries: len(queries),
		PrecisionAtK: make(map[int]float64, len(precisionKs)),
		PerQuery:     make([]domain.QueryRelevance, 0, len(queries)),
	}

	relevantInTopK := make(map[int]int, len(precisionKs))
	consideredInTopK := make(map[int]int, len(precisionKs))
	var relevanceSum float64
	completeMetadata := 0

	for _, query := range queries {
		entry := h.runQuery(ctx, query)
		report.PerQuery = append(report.PerQuery, entry)

		report.TotalResults += len(entry.Results)
		report.RelevantResults += entry.RelevantCount

		for rank, result := range entry.Results {
			relevanceSum += result.CombinedRelevance
			for _, k := range precisionKs {
				if rank < k {
					consideredInTopK[k]++
					if result.IsRelevant {
						relevantInTopK[k]++
					}
				}
			}
			if missing := missingMetadata(result); len(missing) > 0 {
				report.MetadataIssues = append(report.MetadataIssues, domain.MetadataIssue{
					ResultID: result.ID,
					Missing:  missing,
				})
			} else {
				completeMetadata++
			}
		}
	}

	if report.TotalResults > 0 {
		report.MeanRelevance = relevanceSum / float64(report.TotalResults)
		report.MetadataAccuracy = float64(completeMetadata) / float64(report.TotalResults)
	}
	for _, k := range precisionKs {
		if consideredInTopK[k] > 0 {
			report.PrecisionAtK[k] = float64(relevantInTopK[k]) / float64(consideredInTopK[k])
		} else {
			report.PrecisionAtK[k] = 0
		}
	}

	report.FinishedAt = time.Now().UTC()
	return report, nil
}

func (h *ValidationHarness) runQuery(ctx context.Context, query string) domain.QueryRelevance {
	entry := domain.QueryRelevance{Query: query}

	start := time.Now()
	results, err := h.retriever.Retrieve(ctx, domain.RetrievalRequest{Query: query, TopK: h.topK})
	entry.SearchTime = time.Since(start)
	if err != nil {
		entry.Error = err.Error()
		entry.Results = []domain.ScoredResult{}
		return entry
	}

	entry.Results = results
	var sum float64
	for _, result := range results {
		sum += result.CombinedRelevance
		if result.IsRelevant {
			entry.RelevantCount++
		}
	}
	if len(results) > 0 {
		entry.MeanRelevance = sum / float64(len(results))
	}
	return entry
}

// ValidateLabeled checks each case's expected result against the returned
// set, by point id or by case-insensitive text substring, and reports
// accuracy plus mean reciprocal rank.
func (h *ValidationHarness) ValidateLabeled(ctx context.Context, cases []domain.LabeledQuery) (domain.AccuracyReport, error) {
	report := domain.AccuracyReport{
		TotalQueries: len(cases),
		Outcomes:     make([]domain.LabeledOutcome, 0, len(cases)),
	}

	var reciprocalSum float64
	for _, c := range cases {
		outcome := domain.LabeledOutcome{Query: c.Query}

		results, err := h.retriever.Retrieve(ctx, domain.RetrievalRequest{Query: c.Query, TopK: h.topK})
		if err != nil {
			outcome.Error = err.Error()
			report.Outcomes = append(report.Outcomes, outcome)
			continue
		}
		if len(results) > 0 {
			outcome.TopResultID = results[0].ID
		}

		for rank, result := range results {
			if matchesExpected(c, result) {
				outcome.Found = true
				outcome.RankOfExpected = rank + 1
				break
			}
		}

		if outcome.Found {
			report.CorrectRetrievals++
			reciprocalSum += 1 / float64(outcome.RankOfExpected)
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if report.TotalQueries > 0 {
		report.Accuracy = float64(report.CorrectRetrievals) / float64(report.TotalQueries)
		report.MeanReciprocalRank = reciprocalSum / float64(report.TotalQueries)
	}
	return report, nil
}

func matchesExpected(c domain.LabeledQuery, result domain.ScoredResult) bool {
	if c.ExpectedResultID != "" && result.ID == c.ExpectedResultID {
		return true
	}
	if c.ExpectedTextSubstring != "" &&
		strings.Contains(strings.ToLower(result.Text), strings.ToLower(c.ExpectedTextSubstring)) {
		return true
	}
	return false
}

func missingMetadata(result domain.ScoredResult) []string {
	var missing []string
	if strings.TrimSpace(result.URL) == "" {
		missing = append(missing, "url")
	}
	if strings.TrimSpace(result.Title) == "" {
		missing = append(missing, "title")
	}
	if result.Position < 0 {
		missing = append(missing, "position")
	}
	return missing
}
