package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/book-assistant/internal/core/domain"
	"github.com/kirillkom/book-assistant/internal/infrastructure/resilience"
)

// Client performs similarity search against one Qdrant collection of chunk
// vectors. Indexing is owned by the ingestion pipeline; this client only
// reads.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

// SearchSimilar returns payload-bearing hits with similarity >= threshold,
// best first. The score_threshold filter runs server side so relaxed
// re-queries are a fresh round trip, not a client-side re-filter.
func (c *Client) SearchSimilar(
	ctx context.Context,
	queryVector []float32,
	threshold float64,
	limit int,
) ([]domain.VectorHit, error) {
	if len(queryVector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 10
	}

	reqBody := map[string]any{
		"vector":          queryVector,
		"limit":           limit,
		"with_payload":    true,
		"score_threshold": threshold,
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}

	do := func(ctx context.Context) error {
		return c.postJSON(ctx, fmt.Sprintf("/collections/%s/points/search", c.collection), reqBody, &searchResp)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "qdrant.search", do, classifyQdrantError)
	} else {
		err = do(ctx)
	}
	if err != nil {
		return nil, err
	}

	out := make([]domain.VectorHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		out = append(out, domain.VectorHit{
			Title:      getStringPayload(r.Payload, "title"),
			Author:     getStringPayload(r.Payload, "author"),
			DocType:    getStringPayload(r.Payload, "doc_type"),
			Topic:      getStringPayload(r.Payload, "topic"),
			Text:       getStringPayload(r.Payload, "text"),
			Similarity: r.Score,
		})
	}
	return out, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal search body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if msg := strings.TrimSpace(string(respBody)); msg != "" {
			return &statusError{code: resp.StatusCode, message: fmt.Sprintf("qdrant search status: %s: %s", resp.Status, msg)}
		}
		return &statusError{code: resp.StatusCode, message: fmt.Sprintf("qdrant search status: %s", resp.Status)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode search response: %w", err)
	}
	return nil
}

func getStringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
