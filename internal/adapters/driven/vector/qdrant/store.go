// Package qdrant provides a vector store adapter for a managed Qdrant
// index over its REST API. Writes are eventually consistent from the
// cluster's point of view; callers must not rely on immediate
// read-after-write visibility.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/retry"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultTimeout    = 15 * time.Second
	DefaultCollection = "mira"
)

// Config holds configuration for the Qdrant store.
type Config struct {
	// URL is the Qdrant base URL (required), e.g. http://localhost:6333.
	URL string

	// APIKey authenticates requests when the cluster requires it.
	APIKey string

	// Collection is the collection name (default "mira").
	Collection string

	// Dimensions is the vector size (required, must match the embedder).
	Dimensions int

	// Metric is the similarity metric (default cosine).
	Metric domain.Metric

	// Timeout is the per-request timeout (default 15s).
	Timeout time.Duration

	// Retry overrides the backoff policy for transient failures.
	Retry *retry.Policy
}

// Store is a REST client to a Qdrant collection.
type Store struct {
	client     *http.Client
	url        string
	apiKey     string
	collection string
	dims       int
	metric     domain.Metric
	policy     retry.Policy
}

// Qdrant point ids must be UUIDs or unsigned integers, so the chunk id
// is carried in the payload and the point id is derived from it
// deterministically. Same chunk, same point: upserts stay idempotent.
func pointID(chunkID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String()
}

// Open validates the configuration and creates the collection if it
// does not exist yet.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant URL is required", domain.ErrInvalidConfig)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: qdrant dimensions must be positive", domain.ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Metric == "" {
		cfg.Metric = domain.MetricCosine
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	distance, ok := map[domain.Metric]string{
		domain.MetricCosine: "Cosine",
		domain.MetricDot:    "Dot",
	}[cfg.Metric]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, cfg.Metric)
	}

	policy := retry.Default()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	s := &Store{
		client:     &http.Client{Timeout: cfg.Timeout},
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dims:       cfg.Dimensions,
		metric:     cfg.Metric,
		policy:     policy,
	}

	// Create-if-missing; Qdrant answers 200 for an existing collection
	// with the same schema.
	body := map[string]any{
		"vectors": map[string]any{
			"size":     cfg.Dimensions,
			"distance": distance,
		},
	}
	if err := s.do(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", cfg.Collection), body, nil); err != nil {
		return nil, fmt.Errorf("ensure collection: %w", err)
	}

	return s, nil
}

// Upsert writes entries as points, idempotent on the derived point id.
func (s *Store) Upsert(ctx context.Context, entries []domain.EmbeddedChunk) error {
	if len(entries) == 0 {
		return nil
	}

	points := make([]map[string]any, len(entries))
	for i, e := range entries {
		if len(e.Vector) != s.dims {
			return fmt.Errorf("%w: vector dimension %d, store dimension %d",
				domain.ErrConfigMismatch, len(e.Vector), s.dims)
		}
		points[i] = map[string]any{
			"id":     pointID(e.ChunkID),
			"vector": e.Vector,
			"payload": map[string]any{
				"chunk_id":     e.ChunkID,
				"content_hash": e.ContentHash,
				"tags":         e.Tags,
				"region":       e.Region,
				"doc_type":     e.DocType,
				"text":         e.Text,
			},
		}
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", s.collection)
	if err := s.do(ctx, http.MethodPut, path, map[string]any{"points": points}, nil); err != nil {
		return fmt.Errorf("upsert %d points: %w", len(points), err)
	}
	return nil
}

// Query searches the collection with the filter translated to native
// Qdrant payload conditions, so filtering happens server-side.
func (s *Store) Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query dimension %d, store dimension %d",
			domain.ErrConfigMismatch, len(vector), s.dims)
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        topK,
		"with_payload": true,
	}
	if cond := filterConditions(filter); len(cond) > 0 {
		req["filter"] = map[string]any{"must": cond}
	}

	var resp struct {
		Result []struct {
			Score   float64         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", s.collection)
	if err := s.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]domain.SearchResult, 0, len(resp.Result))
	for _, r := range resp.Result {
		var p payload
		if err := json.Unmarshal(r.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: decode payload: %v", domain.ErrVectorStore, err)
		}
		results = append(results, domain.SearchResult{
			ChunkID: p.ChunkID,
			Text:    p.Text,
			Score:   r.Score,
			Tags:    p.Tags,
			Region:  p.Region,
			DocType: p.DocType,
		})
	}
	return results, nil
}

// Delete removes points; Qdrant treats missing ids as a no-op.
func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	ids := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = pointID(id)
	}

	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", s.collection)
	if err := s.do(ctx, http.MethodPost, path, map[string]any{"points": ids}, nil); err != nil {
		return fmt.Errorf("delete %d points: %w", len(ids), err)
	}
	return nil
}

// Hashes retrieves the stored content hash per existing chunk id.
func (s *Store) Hashes(ctx context.Context, chunkIDs []string) (map[string]string, error) {
	if len(chunkIDs) == 0 {
		return map[string]string{}, nil
	}

	ids := make([]string, len(chunkIDs))
	for i, id := range chunkIDs {
		ids[i] = pointID(id)
	}

	req := map[string]any{
		"ids":          ids,
		"with_payload": []string{"chunk_id", "content_hash"},
	}
	var resp struct {
		Result []struct {
			Payload payload `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points", s.collection)
	if err := s.do(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, fmt.Errorf("retrieve points: %w", err)
	}

	out := make(map[string]string, len(resp.Result))
	for _, r := range resp.Result {
		if r.Payload.ChunkID != "" {
			out[r.Payload.ChunkID] = r.Payload.ContentHash
		}
	}
	return out, nil
}

// Metric returns the configured similarity metric.
func (s *Store) Metric() domain.Metric {
	return s.metric
}

// Dimensions returns the configured vector size.
func (s *Store) Dimensions() int {
	return s.dims
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// payload is the stored point payload.
type payload struct {
	ChunkID     string      `json:"chunk_id"`
	ContentHash string      `json:"content_hash"`
	Tags        domain.Tags `json:"tags"`
	Region      string      `json:"region"`
	DocType     string      `json:"doc_type"`
	Text        string      `json:"text"`
}

// filterConditions maps the conjunctive filter onto Qdrant must
// conditions. A match on an array payload field succeeds when the array
// contains the value, which is exactly the tag membership semantics.
func filterConditions(filter domain.Filter) []map[string]any {
	var cond []map[string]any
	if filter.Region != "" {
		cond = append(cond, map[string]any{
			"key":   "region",
			"match": map[string]any{"value": filter.Region},
		})
	}
	if filter.DocType != "" {
		cond = append(cond, map[string]any{
			"key":   "doc_type",
			"match": map[string]any{"value": filter.DocType},
		})
	}
	for category, keywords := range filter.Tags {
		for _, kw := range keywords {
			cond = append(cond, map[string]any{
				"key":   fmt.Sprintf("tags.%s", category),
				"match": map[string]any{"value": kw},
			})
		}
	}
	return cond
}

// do sends one JSON request with bounded retries. 4xx responses are
// permanent; network errors, 429 and 5xx are retried.
func (s *Store) do(ctx context.Context, method, path string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	return s.policy.Do(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, method, s.url+path, bytes.NewReader(data))
		if err != nil {
			return &retry.Permanent{Err: fmt.Errorf("create request: %w", err)}
		}
		req.Header.Set("Content-Type", "application/json")
		if s.apiKey != "" {
			req.Header.Set("api-key", s.apiKey)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrVectorStore, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			msg, _ := io.ReadAll(resp.Body)
			herr := fmt.Errorf("%w: qdrant %s %s returned %d: %s",
				domain.ErrVectorStore, method, path, resp.StatusCode, string(msg))
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return herr
			}
			return &retry.Permanent{Err: herr}
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return &retry.Permanent{Err: fmt.Errorf("decode response: %w", err)}
			}
		}
		return nil
	})
}
