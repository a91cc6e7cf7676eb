package cohere

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/resilience"
)

func newTestClient(t *testing.T, serverURL string, dimension int) *Client {
	t.Helper()
	client, err := New("test-key", "embed-english-v3.0", dimension, Options{
		BaseURL: serverURL,
		Executor: resilience.NewExecutor(resilience.Config{
			MaxAttempts: 3,
			BackoffBase: 1,
			BackoffMax:  1,
		}),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestEmbedDocumentsSendsDocumentInputType(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embed" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3],[0.4,0.5,0.6]]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	embeddings, err := client.EmbedDocuments(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(embeddings) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(embeddings))
	}
	for i, e := range embeddings {
		if e.Degraded {
			t.Fatalf("embedding %d unexpectedly degraded", i)
		}
		if len(e.Vector) != 3 {
			t.Fatalf("embedding %d has dimension %d", i, len(e.Vector))
		}
	}
	if got, _ := captured["input_type"].(string); got != "search_document" {
		t.Fatalf("input_type = %q, want search_document", got)
	}
}

func TestEmbedQuerySendsQueryInputType(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[[1,0,0]]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	vector, err := client.EmbedQuery(context.Background(), "what is resilience?")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if len(vector) != 3 {
		t.Fatalf("vector dimension = %d, want 3", len(vector))
	}
	if got, _ := captured["input_type"].(string); got != "search_query" {
		t.Fatalf("input_type = %q, want search_query", got)
	}
}

func TestEmbedDocumentsRetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"embeddings":[[0.5,0.5]]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	embeddings, err := client.EmbedDocuments(context.Background(), []string{"retry me"})
	if err != nil {
		t.Fatalf("EmbedDocuments() error = %v", err)
	}
	if len(embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(embeddings))
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("expected 2 attempts, got %d", got)
	}
}

func TestEmbedDocumentsDoesNotRetryAuthFailure(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "invalid api token", http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 2)
	_, err := client.EmbedDocuments(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "invalid api token") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected 1 attempt, got %d", got)
	}
}

func TestEmbedDocumentsRejectsDimensionMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[[0.1,0.2,0.3,0.4]]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, 3)
	_, err := client.EmbedDocuments(context.Background(), []string{"hello"})
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestNewRejectsMissingAPIKey(t *testing.T) {
	_, err := New("", "embed-english-v3.0", 3, Options{})
	if !domain.IsKind(err, domain.ErrConfig) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
