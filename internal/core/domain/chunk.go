package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Chunk is a bounded contiguous span of a document's text, the unit of
// embedding and retrieval.
type Chunk struct {
	// DocID references the source document. Non-owning.
	DocID string `json:"doc_id"`

	// Index is the 0-based ordinal of the chunk within its document.
	// It is the sole ordering key when chunks are reassembled.
	Index int `json:"chunk_index"`

	// Text is the chunk content, a substring of the document text.
	Text string `json:"text"`

	// CharStart and CharEnd are byte offsets into the original text,
	// half-open [CharStart, CharEnd).
	CharStart int `json:"char_start"`
	CharEnd   int `json:"char_end"`
}

// ID returns the deterministic chunk identifier derived from the
// document id and ordinal position.
func (c Chunk) ID() string {
	return ChunkID(c.DocID, c.Index)
}

// ChunkID builds the composite identifier for a chunk.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s:%d", docID, index)
}

// ContentHash returns the SHA-256 hex digest of the given text.
// The pipeline uses it to detect unchanged chunks across re-runs.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// TaggedChunk is a chunk with its category tags and the provenance
// metadata inherited from the source document. Created once by the
// tagger; immutable afterwards.
type TaggedChunk struct {
	Chunk

	// Tags holds the matched keywords per category. Every category is
	// present, possibly with an empty set.
	Tags Tags `json:"tags"`

	// Region and DocType are inherited from the source document.
	Region  string `json:"region"`
	DocType string `json:"doc_type"`
}

// EmbeddedChunk is the persisted form of a chunk: its vector plus the
// metadata needed for filtered retrieval. Re-embedding the same chunk
// id overwrites rather than duplicates.
type EmbeddedChunk struct {
	// ChunkID is the deterministic composite of doc id and chunk index.
	ChunkID string `json:"chunk_id"`

	// Vector is the embedding, fixed-length per embedding model.
	Vector []float32 `json:"vector"`

	// ContentHash is the SHA-256 of Text, used by the skip policy.
	ContentHash string `json:"content_hash"`

	Tags    Tags   `json:"tags"`
	Region  string `json:"region"`
	DocType string `json:"doc_type"`
	Text    string `json:"text"`
}
