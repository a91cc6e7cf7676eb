package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chunk is a bounded, possibly-overlapping span of a document's text, the
// unit of embedding and storage. It only lives for the duration of the
// ingestion run that produced it.
type Chunk struct {
	ID           string `json:"chunk_id"`
	DocumentHash string `json:"document_hash"`
	Text         string `json:"text"`
	TokenCount   int    `json:"token_count"`
	Position     int    `json:"position"`
	TotalChunks  int    `json:"total_chunks"`
}

// ChunkID derives the traceability id for a chunk from its parent document
// hash and position.
func ChunkID(documentHash string, position int) string {
	return fmt.Sprintf("%s_chunk_%d", documentHash, position)
}

// Embedding is a provider result for a single text. Degraded marks vectors
// produced by the deterministic placeholder fallback rather than the real
// provider; retrieval-quality tooling can exclude them.
type Embedding struct {
	Vector   []float32 `json:"vector"`
	Degraded bool      `json:"degraded"`
}

// StoredPoint is the persisted (id, vector, payload) triple. ID is
// content-addressed: derived from the hash of the chunk text alone, so
// identical content maps to the same point regardless of source URL.
type StoredPoint struct {
	ID      string       `json:"id"`
	Vector  []float32    `json:"vector"`
	Payload PointPayload `json:"payload"`
}

type PointPayload struct {
	URL            string            `json:"url"`
	Title          string            `json:"title"`
	Text           string            `json:"text"`
	Position       int               `json:"position"`
	TokenCount     int               `json:"token_count"`
	ContentHash    string            `json:"content_hash"`
	Degraded       bool              `json:"degraded"`
	SourceMetadata map[string]string `json:"source_metadata,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
}

// pointNamespace scopes the UUIDv5 derivation of point ids.
var pointNamespace = uuid.MustParse("8f1c6f82-4a0e-4c7b-9b52-6d2a53a60b11")

// PointID maps a chunk-text content hash to a deterministic UUID accepted by
// the vector store as a point id. Same text, same id.
func PointID(chunkTextHash string) string {
	return uuid.NewSHA1(pointNamespace, []byte(chunkTextHash)).String()
}
