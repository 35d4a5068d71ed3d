package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/logger"
)

// DefaultTopK is the result count used when the caller passes none.
const DefaultTopK = 10

// SearchService embeds a query, retrieves the nearest chunks and
// returns them scored and metadata-filtered.
type SearchService struct {
	embedder    driven.EmbeddingService
	store       driven.VectorStore
	defaultTopK int
}

// NewSearchService wires the search path. It fails fast when the
// embedding model does not match the store the index was built with:
// a differing metric or dimension can only produce garbage rankings.
func NewSearchService(embedder driven.EmbeddingService, store driven.VectorStore, defaultTopK int) (*SearchService, error) {
	if embedder == nil || store == nil {
		return nil, fmt.Errorf("%w: search requires embedder and store", domain.ErrInvalidConfig)
	}
	if embedder.Metric() != store.Metric() {
		return nil, fmt.Errorf("%w: model metric %s, store metric %s",
			domain.ErrConfigMismatch, embedder.Metric(), store.Metric())
	}
	if dims := store.Dimensions(); dims != 0 && dims != embedder.Dimensions() {
		return nil, fmt.Errorf("%w: model dimension %d, store dimension %d",
			domain.ErrConfigMismatch, embedder.Dimensions(), dims)
	}
	if defaultTopK <= 0 {
		defaultTopK = DefaultTopK
	}
	return &SearchService{embedder: embedder, store: store, defaultTopK: defaultTopK}, nil
}

// Search returns at most topK chunks ordered by descending similarity,
// ties broken by chunk id. A zero or negative topK uses the configured
// default. An empty query yields no results, not an error.
func (s *SearchService) Search(ctx context.Context, query string, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	if topK <= 0 {
		topK = s.defaultTopK
	}
	logger.Debug("TopK: %d, filter: region=%q doc_type=%q tags=%d",
		topK, filter.Region, filter.DocType, len(filter.Tags))

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	logger.Debug("Query embedding: %d dimensions", len(vector))

	results, err := s.store.Query(ctx, vector, topK, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	// Stores return results ranked already; re-sort for the
	// deterministic tie-break on chunk id.
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ChunkID < results[j].ChunkID
		}
		return results[i].Score > results[j].Score
	})

	logger.Info("Results: %d", len(results))
	return results, nil
}
