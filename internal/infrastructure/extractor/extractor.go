// Package extractor loads local source files into plain text. The format is
// picked by file extension; anything it cannot decode is an input error, not
// a transient one.
package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

type Extractor struct {
	root string
}

// New returns an extractor rooted at the given directory. Paths outside the
// root are rejected.
func New(root string) *Extractor {
	return &Extractor{root: root}
}

func (e *Extractor) Extract(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	resolved, err := e.resolve(path)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".txt", ".md", ".markdown":
		return extractPlaintext(resolved)
	case ".pdf":
		return extractPDF(resolved)
	default:
		return "", domain.WrapError(domain.ErrInvalidInput, "extract source", fmt.Errorf("unsupported file extension: %s", filepath.Ext(resolved)))
	}
}

func (e *Extractor) resolve(path string) (string, error) {
	if e.root == "" {
		return path, nil
	}
	resolved := filepath.Join(e.root, path)
	relative, err := filepath.Rel(e.root, resolved)
	if err != nil || strings.HasPrefix(relative, "..") {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract source", fmt.Errorf("path escapes source root: %s", path))
	}
	return resolved, nil
}

func extractPlaintext(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", domain.WrapError(domain.ErrInvalidInput, "extract source", err)
		}
		return "", fmt.Errorf("read source file: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract source", fmt.Errorf("not valid utf-8: %s", filepath.Base(path)))
	}
	return strings.TrimSpace(string(raw)), nil
}

func extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract source", fmt.Errorf("open pdf: %w", err))
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract source", fmt.Errorf("extract pdf text: %w", err))
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
