// Package openai provides an embedding adapter backed by the OpenAI
// embeddings API, or any compatible endpoint via a custom base URL.
package openai

import (
	"context"
	"errors"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/retry"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Default configuration values.
const (
	DefaultModel        = "text-embedding-3-small"
	DefaultMaxBatchSize = 64
	DefaultRateLimit    = 5 // requests per second
)

// modelDimensions maps known embedding models to their vector sizes.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config holds configuration for the OpenAI embedding service.
type Config struct {
	// APIKey authenticates requests (required).
	APIKey string

	// Model is the embedding model (default text-embedding-3-small).
	Model string

	// BaseURL overrides the API endpoint for compatible providers.
	BaseURL string

	// Dimensions overrides the vector size for models not in the
	// built-in table.
	Dimensions int

	// MaxBatchSize caps how many texts go into one API request
	// (default 64).
	MaxBatchSize int

	// RateLimit caps requests per second (default 5).
	RateLimit float64

	// Retry overrides the backoff policy for transient failures.
	Retry *retry.Policy
}

// Service calls the OpenAI embeddings API.
type Service struct {
	client       *openai.Client
	model        string
	dims         int
	maxBatchSize int
	limiter      *rate.Limiter
	policy       retry.Policy
}

// New creates an OpenAI embedding service.
func New(cfg Config) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: openai API key is required", domain.ErrInvalidConfig)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	dims := cfg.Dimensions
	if dims <= 0 {
		known, ok := modelDimensions[cfg.Model]
		if !ok {
			return nil, fmt.Errorf("%w: unknown model %q, set dimensions explicitly",
				domain.ErrInvalidConfig, cfg.Model)
		}
		dims = known
	}

	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = DefaultMaxBatchSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	policy := retry.Default()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Service{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		dims:         dims,
		maxBatchSize: cfg.MaxBatchSize,
		limiter:      rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		policy:       policy,
	}, nil
}

// Embed returns the embedding vector for a single text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in order, splitting oversized batches into
// API-sized requests.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxBatchSize {
		end := start + s.maxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(s.model),
			Input: texts,
		})
		if err != nil {
			return classify(err)
		}
		if len(resp.Data) != len(texts) {
			return &retry.Permanent{Err: fmt.Errorf(
				"%w: requested %d embeddings, received %d",
				domain.ErrEmbeddingBackend, len(texts), len(resp.Data))}
		}

		vectors = make([][]float32, len(resp.Data))
		for _, d := range resp.Data {
			if len(d.Embedding) != s.dims {
				return &retry.Permanent{Err: fmt.Errorf(
					"%w: model %s returned %d dimensions, configured %d",
					domain.ErrConfigMismatch, s.model, len(d.Embedding), s.dims)}
			}
			vectors[d.Index] = d.Embedding
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// classify wraps API errors so that auth and request errors stop
// immediately while rate limits and server errors are retried.
func classify(err error) error {
	wrapped := fmt.Errorf("%w: %v", domain.ErrEmbeddingBackend, err)
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == 429 || apiErr.HTTPStatusCode >= 500 {
			return wrapped
		}
		return &retry.Permanent{Err: wrapped}
	}
	// Network-level failures are transient.
	return wrapped
}

// Dimensions returns the vector size for the configured model.
func (s *Service) Dimensions() int {
	return s.dims
}

// Metric returns the metric embeddings from this model are ranked by.
// OpenAI embeddings are normalized, so cosine and dot agree; cosine is
// reported to match the store default.
func (s *Service) Metric() domain.Metric {
	return domain.MetricCosine
}

// ModelName returns the configured model name.
func (s *Service) ModelName() string {
	return s.model
}

// Ping verifies credentials with a minimal embedding request.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: []string{"ping"},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrEmbeddingBackend, err)
	}
	return nil
}

// Close releases resources.
func (s *Service) Close() error {
	return nil
}
