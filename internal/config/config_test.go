package config

import "testing"

func TestLoadIncludesChunkingDefaults(t *testing.T) {
	t.Setenv("CHUNK_MIN_TOKENS", "")
	t.Setenv("CHUNK_MAX_TOKENS", "")
	t.Setenv("CHUNK_OVERLAP_TOKENS", "")

	cfg := Load()
	if cfg.ChunkMinTokens != 600 {
		t.Fatalf("expected default min tokens 600, got %d", cfg.ChunkMinTokens)
	}
	if cfg.ChunkMaxTokens != 1200 {
		t.Fatalf("expected default max tokens 1200, got %d", cfg.ChunkMaxTokens)
	}
	if cfg.ChunkOverlapTokens != 100 {
		t.Fatalf("expected default overlap 100, got %d", cfg.ChunkOverlapTokens)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("SCORE_THRESHOLD", "0.42")
	t.Setenv("RELEVANCE_THRESHOLD", "0.6")
	t.Setenv("EMBED_BATCH_SIZE", "48")
	t.Setenv("WORKER_CONCURRENCY", "8")

	cfg := Load()
	if cfg.ScoreThreshold != 0.42 {
		t.Fatalf("expected score threshold override, got %f", cfg.ScoreThreshold)
	}
	if cfg.RelevanceThreshold != 0.6 {
		t.Fatalf("expected relevance threshold override, got %f", cfg.RelevanceThreshold)
	}
	if cfg.EmbedBatchSize != 48 {
		t.Fatalf("expected embed batch size 48, got %d", cfg.EmbedBatchSize)
	}
	if cfg.WorkerConcurrency != 8 {
		t.Fatalf("expected worker concurrency 8, got %d", cfg.WorkerConcurrency)
	}
}

func TestLoadFallsBackOnMalformedNumbers(t *testing.T) {
	t.Setenv("EMBED_DIMENSION", "not-a-number")
	t.Setenv("SCORE_THRESHOLD", "threshold")

	cfg := Load()
	if cfg.EmbedDimension != 1024 {
		t.Fatalf("expected fallback dimension 1024, got %d", cfg.EmbedDimension)
	}
	if cfg.ScoreThreshold != 0.3 {
		t.Fatalf("expected fallback score threshold 0.3, got %f", cfg.ScoreThreshold)
	}
}
