package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/resilience"
)

func TestUpsertEnsuresCollectionAndSendsPoints(t *testing.T) {
	var ensured bool
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/knowledge":
			ensured = true
			_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/knowledge/points":
			if r.URL.Query().Get("wait") != "true" {
				t.Errorf("expected wait=true on upsert")
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode upsert body: %v", err)
			}
			_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 3)
	err := client.Upsert(context.Background(), []domain.StoredPoint{
		{
			ID:     domain.PointID("abc123"),
			Vector: []float32{0.1, 0.2, 0.3},
			Payload: domain.PointPayload{
				URL:         "https://example.com/doc",
				Title:       "Doc",
				Text:        "chunk text",
				Position:    0,
				TokenCount:  2,
				ContentHash: "abc123",
				CreatedAt:   time.Now().UTC(),
			},
		},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if !ensured {
		t.Fatalf("expected collection to be ensured before upsert")
	}

	points, _ := captured["points"].([]any)
	if len(points) != 1 {
		t.Fatalf("expected 1 point in body, got %d", len(points))
	}
	point, _ := points[0].(map[string]any)
	payload, _ := point["payload"].(map[string]any)
	if payload["content_hash"] != "abc123" {
		t.Fatalf("payload content_hash = %v", payload["content_hash"])
	}
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 3)
	err := client.Upsert(context.Background(), []domain.StoredPoint{
		{ID: domain.PointID("abc"), Vector: []float32{0.1, 0.2}},
	})
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureCollectionRejectsForeignDimension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			http.Error(w, `{"status":{"error":"already exists"}}`, http.StatusConflict)
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":768,"distance":"Cosine"}}}},"status":"ok"}`))
		}
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 1024)
	err := client.EnsureCollection(context.Background())
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureCollectionAcceptsMatchingDimension(t *testing.T) {
	var infoCalls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			http.Error(w, `{"status":{"error":"already exists"}}`, http.StatusConflict)
		case http.MethodGet:
			infoCalls++
			_, _ = w.Write([]byte(`{"result":{"config":{"params":{"vectors":{"size":1024,"distance":"Cosine"}}}},"status":"ok"}`))
		}
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 1024)
	if err := client.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection() error = %v", err)
	}
	// Second call short-circuits on the cached result.
	if err := client.EnsureCollection(context.Background()); err != nil {
		t.Fatalf("EnsureCollection() second call error = %v", err)
	}
	if infoCalls != 1 {
		t.Fatalf("expected 1 collection info call, got %d", infoCalls)
	}
}

func TestExistsReportsStoredIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points" {
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode retrieve body: %v", err)
		}
		ids, _ := body["ids"].([]any)
		if len(ids) != 2 {
			t.Fatalf("expected 2 ids in request, got %d", len(ids))
		}
		_, _ = w.Write([]byte(`{"result":[{"id":"11111111-1111-5111-8111-111111111111"}],"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 3)
	found, err := client.Exists(context.Background(), []string{
		"11111111-1111-5111-8111-111111111111",
		"22222222-2222-5222-8222-222222222222",
	})
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !found["11111111-1111-5111-8111-111111111111"] {
		t.Fatalf("expected first id to be reported as stored")
	}
	if found["22222222-2222-5222-8222-222222222222"] {
		t.Fatalf("expected second id to be reported as missing")
	}
}

func TestSearchPassesThresholdAndDecodesPayload(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points/search" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode search body: %v", err)
		}
		_, _ = w.Write([]byte(`{"result":[{"id":"33333333-3333-5333-8333-333333333333","score":0.87,"payload":{"url":"https://example.com","title":"Doc","text":"hit text","position":2,"token_count":40,"content_hash":"deadbeef","degraded":true}}],"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 3)
	hits, err := client.Search(context.Background(), []float32{1, 0, 0}, 5, 0.35)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	hit := hits[0]
	if hit.Score != 0.87 || hit.Payload.Text != "hit text" || hit.Payload.Position != 2 || !hit.Payload.Degraded {
		t.Fatalf("unexpected hit: %+v", hit)
	}
	if got, _ := captured["score_threshold"].(float64); got != 0.35 {
		t.Fatalf("score_threshold = %v, want 0.35", captured["score_threshold"])
	}
}

func TestSearchRejectsWrongQueryDimension(t *testing.T) {
	client := New("http://unused", "knowledge", 3)
	_, err := client.Search(context.Background(), []float32{1, 0}, 5, 0)
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestCountReturnsExactCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/knowledge/points/count" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"result":{"count":1234},"status":"ok"}`))
	}))
	defer server.Close()

	client := New(server.URL, "knowledge", 3)
	count, err := client.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 1234 {
		t.Fatalf("count = %d, want 1234", count)
	}
}

func TestUpsertRetriesOnServiceUnavailable(t *testing.T) {
	var upsertAttempts int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/knowledge":
			_, _ = w.Write([]byte(`{"result":true,"status":"ok"}`))
		case r.Method == http.MethodPut && r.URL.Path == "/collections/knowledge/points":
			upsertAttempts++
			if upsertAttempts == 1 {
				http.Error(w, "temporarily overloaded", http.StatusServiceUnavailable)
				return
			}
			_, _ = w.Write([]byte(`{"result":{"status":"completed"},"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	executor := resilience.NewExecutor(resilience.Config{
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
		BackoffMax:  time.Millisecond,
	})
	client := NewWithOptions(server.URL, "knowledge", 1, Options{Executor: executor})
	err := client.Upsert(context.Background(), []domain.StoredPoint{
		{ID: domain.PointID("retry"), Vector: []float32{1}},
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if upsertAttempts != 2 {
		t.Fatalf("expected 2 upsert attempts, got %d", upsertAttempts)
	}
}
