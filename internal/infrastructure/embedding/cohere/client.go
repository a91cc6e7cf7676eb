package cohere

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/rkudryashov/knowledge-pipeline/internal/core/domain"
	"github.com/rkudryashov/knowledge-pipeline/internal/infrastructure/resilience"
)

const (
	defaultBaseURL   = "https://api.cohere.com"
	defaultBatchSize = 96
)

const (
	inputTypeDocument = "search_document"
	inputTypeQuery    = "search_query"
)

// Client talks to the Cohere embed API. The same model and dimension serve
// ingestion and query time; a response vector of any other length is a
// configuration error, not a degrade.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	dimension  int
	batchSize  int
	httpClient *http.Client
	limiter    *rate.Limiter
	executor   *resilience.Executor
}

type Options struct {
	BaseURL           string
	BatchSize         int
	RequestsPerSecond float64
	HTTPTimeout       time.Duration
	Executor          *resilience.Executor
}

func New(apiKey, model string, dimension int, options Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.WrapError(domain.ErrConfig, "init embedding client", errors.New("missing api key"))
	}
	if dimension <= 0 {
		return nil, domain.WrapError(domain.ErrConfig, "init embedding client", fmt.Errorf("invalid vector dimension %d", dimension))
	}

	baseURL := options.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	batchSize := options.BatchSize
	if batchSize <= 0 || batchSize > defaultBatchSize {
		batchSize = defaultBatchSize
	}
	timeout := options.HTTPTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// The admission gate for the provider's rate limit. Zero means no cap.
	limit := rate.Inf
	if options.RequestsPerSecond > 0 {
		limit = rate.Limit(options.RequestsPerSecond)
	}

	executor := options.Executor
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimension:  dimension,
		batchSize:  batchSize,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
		executor:   executor,
	}, nil
}

func (c *Client) Dimension() int {
	return c.dimension
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([]domain.Embedding, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([]domain.Embedding, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vectors, err := c.embedBatch(ctx, texts[start:end], inputTypeDocument)
		if err != nil {
			return nil, err
		}
		for _, v := range vectors {
			out = append(out, domain.Embedding{Vector: v})
		}
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.embedBatch(ctx, []string{text}, inputTypeQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) embedBatch(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	var vectors [][]float32
	call := func(callCtx context.Context) error {
		if err := c.limiter.Wait(callCtx); err != nil {
			return err
		}
		got, err := c.postEmbed(callCtx, texts, inputType)
		if err != nil {
			return err
		}
		vectors = got
		return nil
	}

	if err := c.executor.Execute(ctx, "cohere.embed", call, classifyEmbedError); err != nil {
		return nil, wrapTemporaryIfNeeded("embed batch", err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embeddings/texts mismatch: %d/%d", len(vectors), len(texts))
	}
	for _, v := range vectors {
		if len(v) != c.dimension {
			return nil, domain.WrapError(
				domain.ErrConfig,
				"embed batch",
				fmt.Errorf("provider returned dimension %d, collection expects %d", len(v), c.dimension),
			)
		}
	}
	return vectors, nil
}

func (c *Client) postEmbed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	reqBody := map[string]any{
		"model":      c.model,
		"texts":      texts,
		"input_type": inputType,
		"truncate":   "END",
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cohere embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, newHTTPStatusError("embed", resp)
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	return response.Embeddings, nil
}
