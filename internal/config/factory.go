package config

import (
	"context"
	"fmt"

	"github.com/mira-labs/mira/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/mira-labs/mira/internal/adapters/driven/embedding/openai"
	"github.com/mira-labs/mira/internal/adapters/driven/llm/anthropic"
	openaillm "github.com/mira-labs/mira/internal/adapters/driven/llm/openai"
	"github.com/mira-labs/mira/internal/adapters/driven/vector/qdrant"
	"github.com/mira-labs/mira/internal/adapters/driven/vector/sqlite"
	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
)

// BuildEmbedder constructs the configured embedding backend.
func (c *Config) BuildEmbedder() (driven.EmbeddingService, error) {
	switch c.Embedding.Provider {
	case EmbeddingOllama:
		return ollama.New(ollama.Config{
			BaseURL:    c.Embedding.BaseURL,
			Model:      c.Embedding.Model,
			Dimensions: c.Embedding.Dimensions,
		}), nil

	case EmbeddingOpenAI:
		envVar := c.Embedding.APIKeyEnv
		if envVar == "" {
			envVar = "OPENAI_API_KEY"
		}
		key, err := apiKey(envVar)
		if err != nil {
			return nil, err
		}
		return openaiembed.New(openaiembed.Config{
			APIKey:     key,
			Model:      c.Embedding.Model,
			BaseURL:    c.Embedding.BaseURL,
			Dimensions: c.Embedding.Dimensions,
		})

	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidConfig, c.Embedding.Provider)
	}
}

// BuildVectorStore constructs the configured vector store. The
// embedder decides the vector size a remote collection is created
// with, so it must be built first.
func (c *Config) BuildVectorStore(ctx context.Context, embedder driven.EmbeddingService) (driven.VectorStore, error) {
	metric := domain.Metric(c.VectorStore.Metric)

	switch c.VectorStore.Provider {
	case VectorSQLite:
		path, err := c.IndexPath()
		if err != nil {
			return nil, err
		}
		return sqlite.Open(ctx, sqlite.Config{
			Path:   path,
			Metric: metric,
		})

	case VectorQdrant:
		key, err := apiKey(c.VectorStore.APIKeyEnv)
		if err != nil {
			return nil, err
		}
		return qdrant.Open(ctx, qdrant.Config{
			URL:        c.VectorStore.URL,
			APIKey:     key,
			Collection: c.VectorStore.Collection,
			Dimensions: embedder.Dimensions(),
			Metric:     metric,
		})

	default:
		return nil, fmt.Errorf("%w: unknown vectorstore provider %q", domain.ErrInvalidConfig, c.VectorStore.Provider)
	}
}

// BuildLLM constructs the configured answer generation backend.
func (c *Config) BuildLLM() (driven.LLMService, error) {
	switch c.LLM.Provider {
	case LLMOpenAI:
		envVar := c.LLM.APIKeyEnv
		if envVar == "" {
			envVar = "OPENAI_API_KEY"
		}
		key, err := apiKey(envVar)
		if err != nil {
			return nil, err
		}
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  key,
			Model:   c.LLM.Model,
			BaseURL: c.LLM.BaseURL,
		})

	case LLMAnthropic:
		envVar := c.LLM.APIKeyEnv
		if envVar == "" {
			envVar = "ANTHROPIC_API_KEY"
		}
		key, err := apiKey(envVar)
		if err != nil {
			return nil, err
		}
		return anthropic.NewLLMService(anthropic.Config{
			APIKey:  key,
			Model:   c.LLM.Model,
			BaseURL: c.LLM.BaseURL,
		})

	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrInvalidConfig, c.LLM.Provider)
	}
}
