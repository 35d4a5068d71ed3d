package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mira-labs/mira/internal/core/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.db")
	s, err := Open(context.Background(), Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func entry(id string, vector []float32, region, docType string) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		ChunkID:     id,
		Vector:      vector,
		ContentHash: domain.ContentHash(id),
		Tags:        domain.Tags{domain.TagEquipment: {}},
		Region:      region,
		DocType:     docType,
		Text:        "text for " + id,
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestUpsert_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := entry("doc-1:0", []float32{1, 0, 0}, "nsw", "guidance")
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{e}))
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{e}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10, domain.Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, "doc-1:0", results[0].ChunkID)
}

func TestUpsert_ReplacesPriorEntry(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := entry("doc-1:0", []float32{1, 0, 0}, "nsw", "guidance")
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{e}))

	e.Text = "revised text"
	e.Region = "qld"
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{e}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "revised text", results[0].Text)
	assert.Equal(t, "qld", results[0].Region)
}

func TestQuery_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	entries := []domain.EmbeddedChunk{
		entry("a:0", []float32{1, 0, 0}, "nsw", "guidance"),
		entry("a:1", []float32{0, 1, 0}, "nsw", "guidance"),
		entry("a:2", []float32{0, 0, 1}, "nsw", "guidance"),
	}
	require.NoError(t, s.Upsert(ctx, entries))

	// Querying with a stored vector returns that chunk first with the
	// metric's maximum similarity.
	results, err := s.Query(ctx, []float32{0, 1, 0}, 1, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a:1", results[0].ChunkID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestQuery_FilterCorrectness(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{
		entry("nsw:0", []float32{1, 0, 0}, "australia", "guidance"),
		entry("qld:0", []float32{1, 0, 0}, "qld", "guidance"),
	}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10, domain.Filter{Region: "australia"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	for _, r := range results {
		assert.Equal(t, "australia", r.Region)
	}
}

func TestQuery_TagFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tagged := entry("a:0", []float32{1, 0, 0}, "nsw", "guidance")
	tagged.Tags = domain.Tags{domain.TagHazard: {"methane"}}
	plain := entry("b:0", []float32{1, 0, 0}, "nsw", "guidance")

	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{tagged, plain}))

	filter := domain.Filter{Tags: map[domain.TagCategory][]string{domain.TagHazard: {"methane"}}}
	results, err := s.Query(ctx, []float32{1, 0, 0}, 10, filter)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a:0", results[0].ChunkID)
}

func TestDelete_MissingIDIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{
		entry("a:0", []float32{1, 0, 0}, "nsw", "guidance"),
	}))

	require.NoError(t, s.Delete(ctx, []string{"a:0", "never-existed"}))

	results, err := s.Query(ctx, []float32{1, 0, 0}, 10, domain.Filter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestHashes(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := entry("a:0", []float32{1, 0, 0}, "nsw", "guidance")
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{e}))

	hashes, err := s.Hashes(ctx, []string{"a:0", "missing:0"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a:0": e.ContentHash}, hashes)
}

func TestReload_AcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)

	original := entry("doc-1:0", []float32{0.5, 0.5, 0}, "wa", "sop")
	original.Tags = domain.Tags{domain.TagMineral: {"gold"}}
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{original}))
	require.NoError(t, s.Close())

	reopened, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 3, reopened.Dimensions())

	results, err := reopened.Query(ctx, []float32{0.5, 0.5, 0}, 1, domain.Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "doc-1:0", results[0].ChunkID)
	assert.Equal(t, original.Text, results[0].Text)
	assert.Equal(t, []string{"gold"}, results[0].Tags[domain.TagMineral])

	hashes, err := reopened.Hashes(ctx, []string{"doc-1:0"})
	require.NoError(t, err)
	assert.Equal(t, original.ContentHash, hashes["doc-1:0"])
}

func TestTagCounts(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := entry("a:0", []float32{1, 0, 0}, "nsw", "guidance")
	a.Tags = domain.Tags{domain.TagHazard: {"methane", "dust"}}
	b := entry("b:0", []float32{0, 1, 0}, "qld", "guidance")
	b.Tags = domain.Tags{domain.TagHazard: {"methane"}, domain.TagEquipment: {"longwall"}}
	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{a, b}))

	counts, err := s.TagCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[domain.TagHazard]["methane"])
	assert.Equal(t, 1, counts[domain.TagHazard]["dust"])
	assert.Equal(t, 1, counts[domain.TagEquipment]["longwall"])
}

func TestOpen_MetricPinned(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()

	s, err := Open(ctx, Config{Path: path, Metric: domain.MetricCosine})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Path: path, Metric: domain.MetricDot})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigMismatch)
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, []domain.EmbeddedChunk{
		entry("a:0", []float32{1, 0, 0}, "nsw", "guidance"),
	}))

	err := s.Upsert(ctx, []domain.EmbeddedChunk{
		entry("b:0", []float32{1, 0}, "nsw", "guidance"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigMismatch)
}
