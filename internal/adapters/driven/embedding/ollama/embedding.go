// Package ollama provides an embedding adapter backed by a local
// Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/retry"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "nomic-embed-text"
	DefaultDimensions = 768
	DefaultTimeout    = 30 * time.Second
)

// Config holds configuration for the Ollama embedding service.
type Config struct {
	// BaseURL is the Ollama server URL (default http://localhost:11434).
	BaseURL string

	// Model is the embedding model name (default nomic-embed-text).
	Model string

	// Dimensions is the vector size the model produces (default 768).
	Dimensions int

	// Timeout is the per-request timeout (default 30s).
	Timeout time.Duration

	// Retry overrides the backoff policy for transient failures.
	Retry *retry.Policy
}

// Service calls the Ollama embeddings API.
type Service struct {
	client  *http.Client
	baseURL string
	model   string
	dims    int
	policy  retry.Policy
}

// New creates an Ollama embedding service.
func New(cfg Config) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	policy := retry.Default()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	return &Service{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		dims:    cfg.Dimensions,
		policy:  policy,
	}
}

type embeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed returns the embedding vector for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		v, err := s.embedOnce(ctx, text)
		if err != nil {
			return err
		}
		vector = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vector, nil
}

// EmbedBatch embeds each text in order. The embeddings endpoint takes
// one prompt per call, so the batch is a sequential loop.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d of %d: %w", i+1, len(texts), err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (s *Service) embedOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embeddingRequest{Model: s.model, Prompt: text})
	if err != nil {
		return nil, &retry.Permanent{Err: fmt.Errorf("marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, &retry.Permanent{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbeddingBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		herr := fmt.Errorf("%w: ollama returned %d: %s",
			domain.ErrEmbeddingBackend, resp.StatusCode, string(msg))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, herr
		}
		return nil, &retry.Permanent{Err: herr}
	}

	var out embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &retry.Permanent{Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(out.Embedding) != s.dims {
		return nil, &retry.Permanent{Err: fmt.Errorf(
			"%w: model %s returned %d dimensions, configured %d",
			domain.ErrConfigMismatch, s.model, len(out.Embedding), s.dims)}
	}

	vector := make([]float32, len(out.Embedding))
	for i, x := range out.Embedding {
		vector[i] = float32(x)
	}
	return vector, nil
}

// Dimensions returns the configured vector size.
func (s *Service) Dimensions() int {
	return s.dims
}

// Metric returns the metric embeddings from this model are ranked by.
func (s *Service) Metric() domain.Metric {
	return domain.MetricCosine
}

// ModelName returns the configured model name.
func (s *Service) ModelName() string {
	return s.model
}

// Ping verifies the server is reachable.
func (s *Service) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: ollama unreachable at %s: %v", domain.ErrEmbeddingBackend, s.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ollama returned %d", domain.ErrEmbeddingBackend, resp.StatusCode)
	}
	return nil
}

// Close releases resources.
func (s *Service) Close() error {
	return nil
}
