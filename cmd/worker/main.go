package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rkudryashov/knowledge-pipeline/internal/bootstrap"
	"github.com/rkudryashov/knowledge-pipeline/internal/config"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
	"github.com/rkudryashov/knowledge-pipeline/internal/observability/logging"
	"github.com/rkudryashov/knowledge-pipeline/internal/observability/metrics"
)

const serviceName = "ingest-worker"

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	pipelineMetrics := metrics.NewPipelineMetrics(serviceName)
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: pipelineMetrics.Handler(),
	}
	go func() {
		logger.Info("metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeIngestRequests(ctx, func(handlerCtx context.Context, request ports.IngestRequest) error {
		ingestCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		text, err := app.Extractor.Extract(ingestCtx, request.Path)
		if err != nil {
			logger.Error("extract source failed", "path", request.Path, "error", err)
			return err
		}

		title := request.Title
		if title == "" {
			title = filepath.Base(request.Path)
		}
		doc := domain.NewDocument(request.URL, title, text, map[string]string{"source_path": request.Path})

		pipelineMetrics.StartDocument()
		report, err := app.Ingestor.Ingest(ingestCtx, doc)
		pipelineMetrics.FinishDocument(serviceName, report, err)
		return err
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
