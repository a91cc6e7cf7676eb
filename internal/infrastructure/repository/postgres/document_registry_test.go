package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
)

func newRegistryWithMock(t *testing.T) (*DocumentRegistry, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRegistry{db: db}, mock, func() { _ = db.Close() }
}

func TestRecordProcessingUpsertsByContentHash(t *testing.T) {
	registry, mock, done := newRegistryWithMock(t)
	defer done()

	doc := domain.NewDocument("https://example.com/doc", "Doc", "some   raw\ttext", nil)

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(doc.ContentHash, doc.URL, doc.Title, string(domain.StatusProcessing), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := registry.RecordProcessing(context.Background(), doc); err != nil {
		t.Fatalf("RecordProcessing() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordOutcomeStampsCountsAndStatus(t *testing.T) {
	registry, mock, done := newRegistryWithMock(t)
	defer done()

	report := domain.IngestionReport{
		ContentHash:       "deadbeef",
		ChunksCreated:     7,
		VectorsStored:     5,
		SkippedDuplicates: 2,
	}

	mock.ExpectExec("UPDATE documents").
		WithArgs("deadbeef", string(domain.StatusReady), 7, 5, 2, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := registry.RecordOutcome(context.Background(), report, domain.StatusReady); err != nil {
		t.Fatalf("RecordOutcome() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRecordOutcomeReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	registry, mock, done := newRegistryWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WithArgs("missing", string(domain.StatusFailed), 0, 0, 0, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := registry.RecordOutcome(context.Background(), domain.IngestionReport{ContentHash: "missing"}, domain.StatusFailed)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByHashReturnsDomainNotFound(t *testing.T) {
	registry, mock, done := newRegistryWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT content_hash, url, title, status").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := registry.GetByHash(context.Background(), "missing")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByHashScansRecord(t *testing.T) {
	registry, mock, done := newRegistryWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"content_hash", "url", "title", "status",
		"chunks_created", "vectors_stored", "skipped_duplicates",
		"error_message", "created_at", "updated_at",
	}).AddRow("deadbeef", "https://example.com/doc", "Doc", "ready", 7, 5, 2, "", now, now)

	mock.ExpectQuery("SELECT content_hash, url, title, status").
		WithArgs("deadbeef").
		WillReturnRows(rows)

	record, err := registry.GetByHash(context.Background(), "deadbeef")
	if err != nil {
		t.Fatalf("GetByHash() error = %v", err)
	}
	if record.Status != domain.StatusReady || record.ChunksCreated != 7 || record.VectorsStored != 5 {
		t.Fatalf("unexpected record: %+v", record)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
