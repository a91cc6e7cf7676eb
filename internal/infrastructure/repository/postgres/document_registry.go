// Package postgres keeps the ingestion ledger: one row per document content
// hash with status and counts. The vector store remains the source of truth
// for chunk data; this table answers "what was ingested, when, how well".
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

type DocumentRegistry struct {
	db *sql.DB
}

func NewDocumentRegistry(db *sql.DB) *DocumentRegistry {
	return &DocumentRegistry{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *DocumentRegistry) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across worker/CLI startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026083001)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	content_hash TEXT PRIMARY KEY,
	url TEXT NOT NULL,
	title TEXT NOT NULL,
	status TEXT NOT NULL,
	chunks_created INTEGER NOT NULL DEFAULT 0,
	vectors_stored INTEGER NOT NULL DEFAULT 0,
	skipped_duplicates INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	source_metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents(updated_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// RecordProcessing creates or refreshes the row for a document entering the
// pipeline. Re-ingesting known content resets status to processing but keeps
// the original created_at.
func (r *DocumentRegistry) RecordProcessing(ctx context.Context, doc domain.Document) error {
	metadataJSON, err := json.Marshal(doc.SourceMetadata)
	if err != nil {
		return fmt.Errorf("marshal source metadata: %w", err)
	}
	if doc.SourceMetadata == nil {
		metadataJSON = []byte("{}")
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
INSERT INTO documents (content_hash, url, title, status, source_metadata, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$6)
ON CONFLICT (content_hash) DO UPDATE
SET url = EXCLUDED.url,
	title = EXCLUDED.title,
	status = EXCLUDED.status,
	source_metadata = EXCLUDED.source_metadata,
	error_message = '',
	updated_at = EXCLUDED.updated_at
`, doc.ContentHash, doc.URL, doc.Title, string(domain.StatusProcessing), metadataJSON, now)
	if err != nil {
		return fmt.Errorf("record processing document: %w", err)
	}
	return nil
}

// RecordOutcome finalizes the row after an ingestion run with the report's
// counts and the resulting status.
func (r *DocumentRegistry) RecordOutcome(ctx context.Context, report domain.IngestionReport, status domain.DocumentStatus) error {
	var errMessage string
	if len(report.Errors) > 0 {
		messages := make([]string, 0, len(report.Errors))
		for _, e := range report.Errors {
			messages = append(messages, e.Message)
		}
		encoded, err := json.Marshal(messages)
		if err != nil {
			return fmt.Errorf("marshal error messages: %w", err)
		}
		errMessage = string(encoded)
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2,
	chunks_created = $3,
	vectors_stored = $4,
	skipped_duplicates = $5,
	error_message = $6,
	updated_at = $7
WHERE content_hash = $1
`, report.ContentHash, string(status), report.ChunksCreated, report.VectorsStored, report.SkippedDuplicates, errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("record ingestion outcome: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ingestion outcome rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrDocumentNotFound, "record ingestion outcome", fmt.Errorf("no row for hash %s", report.ContentHash))
	}
	return nil
}

func (r *DocumentRegistry) GetByHash(ctx context.Context, contentHash string) (*domain.DocumentRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT content_hash, url, title, status, chunks_created, vectors_stored, skipped_duplicates, error_message, created_at, updated_at
FROM documents
WHERE content_hash = $1
`, contentHash)

	var record domain.DocumentRecord
	var status string

	err := row.Scan(
		&record.ContentHash, &record.URL, &record.Title, &status,
		&record.ChunksCreated, &record.VectorsStored, &record.SkippedDuplicates,
		&record.Error, &record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("no row for hash %s", contentHash))
		}
		return nil, fmt.Errorf("scan document record: %w", err)
	}

	record.Status = domain.DocumentStatus(status)
	return &record, nil
}
