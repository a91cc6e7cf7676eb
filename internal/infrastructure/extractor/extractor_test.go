package extractor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

func writeFile(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestExtractPlaintextTrimsContent(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "article.md", []byte("\n\n# Heading\n\nBody text.\n"))

	extractor := New(dir)
	text, err := extractor.Extract(context.Background(), "article.md")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if text != "# Heading\n\nBody text." {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestExtractRejectsUnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "data.xlsx", []byte("binary"))

	extractor := New(dir)
	_, err := extractor.Extract(context.Background(), "data.xlsx")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestExtractRejectsBinaryContentInTextFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.txt", []byte{0xff, 0xfe, 0x00, 0x01})

	extractor := New(dir)
	_, err := extractor.Extract(context.Background(), "broken.txt")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestExtractRejectsPathEscapingRoot(t *testing.T) {
	extractor := New(t.TempDir())
	_, err := extractor.Extract(context.Background(), "../outside.txt")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestExtractRejectsMissingFile(t *testing.T) {
	extractor := New(t.TempDir())
	_, err := extractor.Extract(context.Background(), "missing.txt")
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}
