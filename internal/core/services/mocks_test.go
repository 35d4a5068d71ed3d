package services

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
)

// --- Mock implementations of the driven ports ---

// mockEmbedder returns a deterministic unit vector per text so tests
// can reason about similarity without a real model.
type mockEmbedder struct {
	mu       sync.Mutex
	dims     int
	metric   domain.Metric
	embedErr error
	batches  [][]string
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{dims: 4, metric: domain.MetricCosine}
}

// vectorFor spreads the text's bytes over the dimensions and
// normalises, so equal texts get equal vectors.
func (m *mockEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, m.dims)
	for i := 0; i < len(text); i++ {
		v[i%m.dims] += float32(text[i])
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range v {
			v[i] *= inv
		}
	}
	return v
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	m.batches = append(m.batches, texts)
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vectorFor(t)
	}
	return out, nil
}

func (m *mockEmbedder) Dimensions() int            { return m.dims }
func (m *mockEmbedder) Metric() domain.Metric      { return m.metric }
func (m *mockEmbedder) ModelName() string          { return "mock-embedder" }
func (m *mockEmbedder) Ping(context.Context) error { return nil }
func (m *mockEmbedder) Close() error               { return nil }

// mockStore is an in-memory VectorStore with exact cosine ranking.
type mockStore struct {
	mu        sync.Mutex
	entries   map[string]domain.EmbeddedChunk
	metric    domain.Metric
	dims      int
	upsertErr error
	queryErr  error
	hashErr   error
	upserts   int
}

func newMockStore() *mockStore {
	return &mockStore{
		entries: make(map[string]domain.EmbeddedChunk),
		metric:  domain.MetricCosine,
	}
}

func (m *mockStore) Upsert(_ context.Context, entries []domain.EmbeddedChunk) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	for _, e := range entries {
		m.entries[e.ChunkID] = e
	}
	return nil
}

func (m *mockStore) Query(_ context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	results := make([]domain.SearchResult, 0, len(m.entries))
	for _, e := range m.entries {
		if !filter.Matches(e.Region, e.DocType, e.Tags) {
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID: e.ChunkID,
			Text:    e.Text,
			Score:   cosine(vector, e.Vector),
			Tags:    e.Tags,
			Region:  e.Region,
			DocType: e.DocType,
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

func (m *mockStore) Delete(_ context.Context, chunkIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range chunkIDs {
		delete(m.entries, id)
	}
	return nil
}

func (m *mockStore) Hashes(_ context.Context, chunkIDs []string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashErr != nil {
		return nil, m.hashErr
	}
	out := make(map[string]string)
	for _, id := range chunkIDs {
		if e, ok := m.entries[id]; ok {
			out[id] = e.ContentHash
		}
	}
	return out, nil
}

func (m *mockStore) Metric() domain.Metric { return m.metric }

func (m *mockStore) Dimensions() int { return m.dims }

func (m *mockStore) Close() error { return nil }

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// mockLLM returns a canned answer and records the last prompt.
type mockLLM struct {
	mu       sync.Mutex
	answer   string
	genErr   error
	lastUser string
}

func (m *mockLLM) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.genErr != nil {
		return "", m.genErr
	}
	m.lastUser = prompt
	return m.answer, nil
}

func (m *mockLLM) Chat(_ context.Context, messages []driven.ChatMessage, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.genErr != nil {
		return "", m.genErr
	}
	for _, msg := range messages {
		if msg.Role == "user" {
			m.lastUser = msg.Content
		}
	}
	return m.answer, nil
}

func (m *mockLLM) ModelName() string          { return "mock-llm" }
func (m *mockLLM) Ping(context.Context) error { return nil }
func (m *mockLLM) Close() error               { return nil }
