// Command ingest walks a source directory and feeds every supported file
// through the pipeline, either directly or by enqueueing requests for the
// worker fleet.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rkudryashov/knowledge-pipeline/internal/bootstrap"
	"github.com/rkudryashov/knowledge-pipeline/internal/config"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/core/ports"
	"github.com/rkudryashov/knowledge-pipeline/internal/observability/logging"
)

const serviceName = "ingest-cli"

func main() {
	dir := flag.String("dir", "", "source directory (defaults to SOURCE_ROOT)")
	baseURL := flag.String("base-url", "file://", "url prefix recorded for ingested documents")
	enqueue := flag.Bool("enqueue", false, "publish requests to the queue instead of ingesting directly")
	flag.Parse()

	cfg := config.Load()
	if *dir != "" {
		cfg.SourceRoot = *dir
	}
	logger := logging.NewJSONLogger(serviceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	paths, err := collectSources(cfg.SourceRoot)
	if err != nil {
		log.Fatalf("scan sources: %v", err)
	}
	if len(paths) == 0 {
		logger.Warn("no supported source files found", "dir", cfg.SourceRoot)
		return
	}
	logger.Info("sources discovered", "count", len(paths), "dir", cfg.SourceRoot)

	if *enqueue {
		for _, path := range paths {
			request := ports.IngestRequest{
				URL:   *baseURL + filepath.ToSlash(path),
				Title: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
				Path:  path,
			}
			if err := app.Queue.PublishIngestRequest(ctx, request); err != nil {
				logger.Error("enqueue failed", "path", path, "error", err)
				continue
			}
			logger.Info("enqueued", "path", path)
		}
		return
	}

	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		text, err := app.Extractor.Extract(ctx, path)
		if err != nil {
			logger.Error("extract failed", "path", path, "error", err)
			continue
		}
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		docs = append(docs, domain.NewDocument(*baseURL+filepath.ToSlash(path), title, text, map[string]string{"source_path": path}))
	}

	batch, err := app.Ingestor.IngestAll(ctx, docs)
	if err != nil {
		logger.Error("batch interrupted", "error", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(batch); err != nil {
		log.Fatalf("encode report: %v", err)
	}
}

// collectSources returns supported files under root, as root-relative paths.
func collectSources(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".txt", ".md", ".markdown", ".pdf":
			relative, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}
			paths = append(paths, relative)
		}
		return nil
	})
	return paths, err
}
