// Command validate runs a fixed query set against the live collection and
// prints retrieval-quality reports.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	"github.com/rkudryashov/knowledge-pipeline/internal/bootstrap"
	"github.com/rkudryashov/knowledge-pipeline/internal/config"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/usecase"
	"github.com/rkudryashov/knowledge-pipeline/internal/observability/logging"
	"github.com/rkudryashov/knowledge-pipeline/internal/observability/metrics"
)

const serviceName = "validate-cli"

// querySet is the YAML layout of a validation file: plain queries measure
// relevance and metadata quality, labeled cases measure accuracy and MRR.
type querySet struct {
	Queries []string              `yaml:"queries"`
	Labeled []domain.LabeledQuery `yaml:"labeled"`
}

type output struct {
	CollectionPoints int                      `json:"collection_points"`
	Relevance        *domain.ValidationReport `json:"relevance,omitempty"`
	Accuracy         *domain.AccuracyReport   `json:"accuracy,omitempty"`
}

func main() {
	queriesPath := flag.String("queries", "queries.yaml", "path to the YAML query set")
	flag.Parse()

	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	set, err := loadQuerySet(*queriesPath)
	if err != nil {
		log.Fatalf("load query set: %v", err)
	}
	if len(set.Queries) == 0 && len(set.Labeled) == 0 {
		log.Fatalf("query set %s is empty", *queriesPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics(serviceName)
	retriever := pipelineMetrics.InstrumentRetriever(serviceName, app.Retriever)
	var validator ports.RetrievalValidator = usecase.NewValidationHarness(retriever, cfg.RetrievalTopK)

	var result output
	result.CollectionPoints, err = app.Store.Count(ctx)
	if err != nil {
		logger.Warn("collection count unavailable", "error", err)
	}

	if len(set.Queries) > 0 {
		report, err := validator.Validate(ctx, set.Queries)
		if err != nil {
			log.Fatalf("validate: %v", err)
		}
		result.Relevance = &report
		logger.Info("relevance validation finished",
			"queries", report.TotalQueries,
			"results", report.TotalResults,
			"mean_relevance", report.MeanRelevance,
		)
	}

	if len(set.Labeled) > 0 {
		report, err := validator.ValidateLabeled(ctx, set.Labeled)
		if err != nil {
			log.Fatalf("validate labeled: %v", err)
		}
		result.Accuracy = &report
		logger.Info("labeled validation finished",
			"queries", report.TotalQueries,
			"accuracy", report.Accuracy,
			"mrr", report.MeanReciprocalRank,
		)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

func loadQuerySet(path string) (querySet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return querySet{}, err
	}
	var set querySet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return querySet{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return set, nil
}
