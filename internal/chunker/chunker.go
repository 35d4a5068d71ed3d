// Package chunker splits cleaned document text into overlapping,
// size-bounded chunks.
package chunker

import (
	"fmt"

	"github.com/mira-labs/mira/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// DefaultBoundaryTolerance is how far the splitter looks back from the
// nominal cut point for a sentence or whitespace boundary. Tunable, not
// a contract; coverage and ordering invariants hold for any value.
const DefaultBoundaryTolerance = 100

// Splitter produces deterministic chunk boundaries for a document.
// Identical (document, size, overlap) input always yields identical
// chunks.
type Splitter struct {
	chunkSize int
	overlap   int
	tolerance int
}

// Option configures the splitter.
type Option func(*Splitter)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(s *Splitter) { s.chunkSize = size }
}

// WithOverlap sets the overlap between consecutive chunks in characters.
func WithOverlap(overlap int) Option {
	return func(s *Splitter) { s.overlap = overlap }
}

// WithBoundaryTolerance sets the lookback window for boundary snapping.
func WithBoundaryTolerance(tolerance int) Option {
	return func(s *Splitter) { s.tolerance = tolerance }
}

// New creates a splitter. It fails when chunkSize <= 0 or the overlap
// is negative or not strictly smaller than the chunk size.
func New(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
		tolerance: DefaultBoundaryTolerance,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, s.chunkSize)
	}
	if s.overlap < 0 || s.overlap >= s.chunkSize {
		return nil, fmt.Errorf("%w: overlap must be in [0, chunk size), got %d", domain.ErrInvalidConfig, s.overlap)
	}
	if s.tolerance < 0 {
		return nil, fmt.Errorf("%w: boundary tolerance must be non-negative, got %d", domain.ErrInvalidConfig, s.tolerance)
	}

	// Snapping must never eat the whole stride, or the window would
	// stop advancing.
	if max := s.chunkSize - s.overlap - 1; s.tolerance > max {
		s.tolerance = max
	}

	return s, nil
}

// ChunkSize returns the configured chunk size.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int { return s.overlap }

// Split slides a window over the document text at stride
// chunkSize-overlap, preferring sentence or whitespace boundaries near
// the nominal cut point. The last chunk may be shorter; an empty
// document yields no chunks.
func (s *Splitter) Split(doc domain.CleanedDocument) []domain.Chunk {
	text := doc.Text
	n := len(text)
	if n == 0 {
		return nil
	}

	estimated := n/(s.chunkSize-s.overlap) + 1
	chunks := make([]domain.Chunk, 0, estimated)

	start := 0
	for index := 0; start < n; index++ {
		end := start + s.chunkSize
		if end >= n {
			end = n
		} else {
			end = s.snap(text, start, end)
		}

		chunks = append(chunks, domain.Chunk{
			DocID:     doc.ID,
			Index:     index,
			Text:      text[start:end],
			CharStart: start,
			CharEnd:   end,
		})

		if end == n {
			break
		}
		start = end - s.overlap
	}

	return chunks
}

// snap looks back from the nominal cut point for a break position,
// preferring the character after a sentence terminator, then the
// position after any whitespace. Falls back to the hard cut.
func (s *Splitter) snap(text string, start, nominal int) int {
	limit := nominal - s.tolerance
	if limit <= start {
		limit = start + 1
	}

	space := -1
	for i := nominal - 1; i >= limit; i-- {
		switch text[i] {
		case '.', '!', '?', '\n':
			return i + 1
		case ' ', '\t', '\r':
			if space < 0 {
				space = i + 1
			}
		}
	}
	if space > start {
		return space
	}
	return nominal
}
