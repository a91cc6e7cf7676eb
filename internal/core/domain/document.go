package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
	"time"
)

type DocumentStatus string

const (
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusFailed     DocumentStatus = "failed"
)

// Document is the unit of ingestion. ContentHash is computed from the
// normalized text once and is the document's identity key.
type Document struct {
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	RawText        string            `json:"raw_text"`
	ContentHash    string            `json:"content_hash"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
}

// DocumentRecord is the registry's view of an ingested document.
type DocumentRecord struct {
	ContentHash       string         `json:"content_hash"`
	URL               string         `json:"url"`
	Title             string         `json:"title"`
	Status            DocumentStatus `json:"status"`
	ChunksCreated     int            `json:"chunks_created"`
	VectorsStored     int            `json:"vectors_stored"`
	SkippedDuplicates int            `json:"skipped_duplicates"`
	Error             string         `json:"error,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// NormalizeText collapses runs of whitespace so hashing is stable across
// formatting-only differences.
func NormalizeText(text string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}

// HashText returns the hex SHA-256 digest of the given text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// NewDocument normalizes the raw text and stamps the content hash.
func NewDocument(url, title, rawText string, metadata map[string]string) Document {
	normalized := NormalizeText(rawText)
	return Document{
		URL:            url,
		Title:          title,
		RawText:        normalized,
		ContentHash:    HashText(normalized),
		SourceMetadata: metadata,
	}
}
