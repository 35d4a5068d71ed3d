package driven

import (
	"context"

	"github.com/mira-labs/mira/internal/core/domain"
)

// EmbeddingService generates vector embeddings from text.
//
// Implementations batch internally up to a backend-specific maximum, so
// callers may pass arbitrarily many texts. The returned slice is
// order-preserving and always has exactly one vector per input text;
// on any failure the whole call fails, never a partial result.
//
// Implementations include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// Embed generates a vector embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g. 768, 1536).
	// This must match the VectorStore the vectors are written to.
	Dimensions() int

	// Metric returns the similarity metric the model was designed for.
	Metric() domain.Metric

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
