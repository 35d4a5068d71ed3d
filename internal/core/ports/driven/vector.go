package driven

import (
	"context"

	"github.com/mira-labs/mira/internal/core/domain"
)

// VectorStore persists (vector, chunk id, metadata) triples and answers
// top-k nearest-neighbour queries, optionally pre-filtered by metadata.
//
// Implementations include:
//   - sqlite: single-process index persisted to disk, loaded wholesale
//   - qdrant: managed remote index, eventually-consistent writes
type VectorStore interface {
	// Upsert inserts or replaces entries keyed by chunk id. Re-upserting
	// an id replaces the prior vector and metadata; no query observes a
	// half-updated entry.
	Upsert(ctx context.Context, entries []domain.EmbeddedChunk) error

	// Query returns at most topK entries ordered by descending
	// similarity on the store's metric. The filter is applied either
	// natively or by over-fetch and post-filter; results are equivalent
	// regardless of backend.
	Query(ctx context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error)

	// Delete removes entries. Deleting a non-existent id is a no-op.
	Delete(ctx context.Context, chunkIDs []string) error

	// Hashes returns the stored content hash for each of the given ids
	// that exists. Missing ids are simply absent from the map.
	Hashes(ctx context.Context, chunkIDs []string) (map[string]string, error)

	// Metric returns the similarity metric this store ranks by.
	Metric() domain.Metric

	// Dimensions returns the vector size the store was created with,
	// or 0 if the store is still empty and unconstrained.
	Dimensions() int

	// Close releases resources, flushing to disk where applicable.
	Close() error
}
