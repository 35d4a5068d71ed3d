package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mira-labs/mira/internal/core/domain"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr bool
	}{
		{"defaults", nil, false},
		{"custom valid", []Option{WithChunkSize(500), WithOverlap(100)}, false},
		{"zero overlap", []Option{WithChunkSize(500), WithOverlap(0)}, false},
		{"zero size", []Option{WithChunkSize(0)}, true},
		{"negative size", []Option{WithChunkSize(-10)}, true},
		{"negative overlap", []Option{WithOverlap(-1)}, true},
		{"overlap equals size", []Option{WithChunkSize(100), WithOverlap(100)}, true},
		{"overlap exceeds size", []Option{WithChunkSize(100), WithOverlap(150)}, true},
		{"negative tolerance", []Option{WithBoundaryTolerance(-5)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.opts...)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSplit_EmptyDocument(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	chunks := s.Split(domain.CleanedDocument{ID: "doc-1"})
	assert.Empty(t, chunks)
}

func TestSplit_ShortDocument(t *testing.T) {
	s, err := New(WithChunkSize(100), WithOverlap(20))
	require.NoError(t, err)

	doc := domain.CleanedDocument{ID: "doc-1", Text: "Ventilation must be inspected daily."}
	chunks := s.Split(doc)

	require.Len(t, chunks, 1)
	assert.Equal(t, doc.Text, chunks[0].Text)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, len(doc.Text), chunks[0].CharEnd)
	assert.Equal(t, 0, chunks[0].Index)
	assert.Equal(t, "doc-1:0", chunks[0].ID())
}

func TestSplit_FixedBoundaries(t *testing.T) {
	// No whitespace anywhere, so snapping never fires: a 1200-char
	// document at size 500 / overlap 100 must split at exactly
	// [0,500), [400,900), [800,1200).
	s, err := New(WithChunkSize(500), WithOverlap(100))
	require.NoError(t, err)

	doc := domain.CleanedDocument{ID: "doc-1", Text: strings.Repeat("x", 1200)}
	chunks := s.Split(doc)

	require.Len(t, chunks, 3)
	wantBounds := [][2]int{{0, 500}, {400, 900}, {800, 1200}}
	for i, want := range wantBounds {
		assert.Equal(t, i, chunks[i].Index)
		assert.Equal(t, want[0], chunks[i].CharStart, "chunk %d start", i)
		assert.Equal(t, want[1], chunks[i].CharEnd, "chunk %d end", i)
	}
}

func TestSplit_SnapsToSentenceBoundary(t *testing.T) {
	s, err := New(WithChunkSize(50), WithOverlap(10), WithBoundaryTolerance(20))
	require.NoError(t, err)

	// A sentence terminator sits just before the nominal cut at 50.
	text := "Check the methane monitor before every shift. " + strings.Repeat("a", 100)
	doc := domain.CleanedDocument{ID: "doc-1", Text: text}
	chunks := s.Split(doc)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "Check the methane monitor before every shift.", strings.TrimSpace(chunks[0].Text))
	assert.Equal(t, byte('.'), chunks[0].Text[len(chunks[0].Text)-1])
}

func TestSplit_SnapsToWhitespace(t *testing.T) {
	s, err := New(WithChunkSize(30), WithOverlap(5), WithBoundaryTolerance(10))
	require.NoError(t, err)

	text := "longwall shearer dragline excavator conveyor roofbolter"
	doc := domain.CleanedDocument{ID: "doc-1", Text: text}
	chunks := s.Split(doc)

	require.True(t, len(chunks) >= 2)
	// The first cut should land after a space rather than mid-word.
	assert.Equal(t, byte(' '), chunks[0].Text[len(chunks[0].Text)-1])
}

func TestSplit_CoverageInvariant(t *testing.T) {
	texts := map[string]string{
		"prose": strings.Repeat("The mine ventilation system must be checked. Gas levels are logged hourly. ", 40),
		"dense": strings.Repeat("abcdefghij", 137),
		"exact": strings.Repeat("y", 1000),
	}

	configs := [][2]int{{1000, 200}, {500, 100}, {100, 0}, {64, 63}}

	for name, text := range texts {
		for _, cfg := range configs {
			s, err := New(WithChunkSize(cfg[0]), WithOverlap(cfg[1]))
			require.NoError(t, err)

			doc := domain.CleanedDocument{ID: "doc-1", Text: text}
			chunks := s.Split(doc)
			require.NotEmpty(t, chunks, "%s size=%d", name, cfg[0])

			assert.Equal(t, 0, chunks[0].CharStart)
			assert.Equal(t, len(text), chunks[len(chunks)-1].CharEnd)

			for i, c := range chunks {
				assert.Equal(t, i, c.Index, "index must be strictly increasing")
				assert.Equal(t, text[c.CharStart:c.CharEnd], c.Text)
				assert.LessOrEqual(t, len(c.Text), cfg[0])
				if i > 0 {
					prev := chunks[i-1]
					// Overlap only at the boundary, never a gap.
					assert.LessOrEqual(t, c.CharStart, prev.CharEnd, "no gap between chunks")
					assert.Greater(t, c.CharEnd, prev.CharEnd, "window must advance")
				}
			}
		}
	}
}

func TestSplit_Deterministic(t *testing.T) {
	s, err := New(WithChunkSize(200), WithOverlap(50))
	require.NoError(t, err)

	doc := domain.CleanedDocument{
		ID:   "doc-1",
		Text: strings.Repeat("Inspect the dragline boom for cracks. Report defects immediately. ", 30),
	}

	first := s.Split(doc)
	second := s.Split(doc)
	assert.Equal(t, first, second)
}
