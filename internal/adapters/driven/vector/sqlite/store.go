// Package sqlite provides a single-process vector store persisted in a
// SQLite database. The whole index is loaded into memory at open and
// queried with an exact similarity scan; SQLite is the durable copy
// that survives process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Config holds configuration for the local store.
type Config struct {
	// Path is the SQLite database file (required).
	Path string

	// Metric is the similarity metric to rank by (default cosine).
	// Once the store has been created, reopening with a different
	// metric is a configuration error.
	Metric domain.Metric
}

// Store is the local vector store.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	metric  domain.Metric
	dims    int
	entries map[string]domain.EmbeddedChunk
}

const schema = `
CREATE TABLE IF NOT EXISTS chunks (
	chunk_id     TEXT PRIMARY KEY,
	vector       BLOB NOT NULL,
	content_hash TEXT NOT NULL,
	tags         TEXT NOT NULL,
	region       TEXT NOT NULL DEFAULT '',
	doc_type     TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// Open opens or creates the store at cfg.Path and loads the index
// wholesale into memory.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: sqlite store path is required", domain.ErrInvalidConfig)
	}
	if cfg.Metric == "" {
		cfg.Metric = domain.MetricCosine
	}
	if cfg.Metric != domain.MetricCosine && cfg.Metric != domain.MetricDot {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidConfig, cfg.Metric)
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &Store{
		db:      db,
		metric:  cfg.Metric,
		entries: make(map[string]domain.EmbeddedChunk),
	}

	if err := s.checkMetric(ctx, cfg.Metric); err != nil {
		db.Close()
		return nil, err
	}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// checkMetric pins the metric on first open and rejects a mismatch on
// any later open. Switching metrics would silently re-rank the index.
func (s *Store) checkMetric(ctx context.Context, metric domain.Metric) error {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'metric'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, `INSERT INTO meta (key, value) VALUES ('metric', ?)`, string(metric))
		if err != nil {
			return fmt.Errorf("store metric: %w", err)
		}
		return nil
	case err != nil:
		return fmt.Errorf("read metric: %w", err)
	}

	if stored != string(metric) {
		return fmt.Errorf("%w: store was created with metric %s, configured %s",
			domain.ErrConfigMismatch, stored, metric)
	}
	return nil
}

// load reads every persisted entry into the in-memory index.
func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT chunk_id, vector, content_hash, tags, region, doc_type, text FROM chunks`)
	if err != nil {
		return fmt.Errorf("load chunks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.EmbeddedChunk
		var blob []byte
		var tagsJSON string
		if err := rows.Scan(&e.ChunkID, &blob, &e.ContentHash, &tagsJSON, &e.Region, &e.DocType, &e.Text); err != nil {
			return fmt.Errorf("scan chunk: %w", err)
		}
		e.Vector = decodeVector(blob)
		if err := json.Unmarshal([]byte(tagsJSON), &e.Tags); err != nil {
			return fmt.Errorf("decode tags for %s: %w", e.ChunkID, err)
		}
		if s.dims == 0 {
			s.dims = len(e.Vector)
		}
		s.entries[e.ChunkID] = e
	}
	return rows.Err()
}

// Upsert inserts or replaces entries in one transaction, then updates
// the in-memory index so no query observes a half-written batch.
func (s *Store) Upsert(ctx context.Context, entries []domain.EmbeddedChunk) error {
	if len(entries) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entries {
		if s.dims != 0 && len(e.Vector) != s.dims {
			return fmt.Errorf("%w: vector dimension %d, store dimension %d",
				domain.ErrConfigMismatch, len(e.Vector), s.dims)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrVectorStore, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, vector, content_hash, tags, region, doc_type, text)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			content_hash = excluded.content_hash,
			tags = excluded.tags,
			region = excluded.region,
			doc_type = excluded.doc_type,
			text = excluded.text`)
	if err != nil {
		return fmt.Errorf("%w: prepare: %v", domain.ErrVectorStore, err)
	}
	defer stmt.Close()

	for _, e := range entries {
		tagsJSON, err := json.Marshal(e.Tags)
		if err != nil {
			return fmt.Errorf("encode tags for %s: %w", e.ChunkID, err)
		}
		if _, err := stmt.ExecContext(ctx, e.ChunkID, encodeVector(e.Vector),
			e.ContentHash, string(tagsJSON), e.Region, e.DocType, e.Text); err != nil {
			return fmt.Errorf("%w: upsert %s: %v", domain.ErrVectorStore, e.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrVectorStore, err)
	}

	for _, e := range entries {
		if s.dims == 0 {
			s.dims = len(e.Vector)
		}
		s.entries[e.ChunkID] = e
	}
	return nil
}

// Query scans the in-memory index, pre-filtering on metadata, and
// returns the topK most similar entries in descending score order with
// chunk id as the tie-break.
func (s *Store) Query(_ context.Context, vector []float32, topK int, filter domain.Filter) ([]domain.SearchResult, error) {
	if topK <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dims != 0 && len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query dimension %d, store dimension %d",
			domain.ErrConfigMismatch, len(vector), s.dims)
	}

	results := make([]domain.SearchResult, 0, len(s.entries))
	for _, e := range s.entries {
		if !filter.Matches(e.Region, e.DocType, e.Tags) {
			continue
		}
		results = append(results, domain.SearchResult{
			ChunkID: e.ChunkID,
			Text:    e.Text,
			Score:   s.similarity(vector, e.Vector),
			Tags:    e.Tags,
			Region:  e.Region,
			DocType: e.DocType,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ChunkID < results[j].ChunkID
		}
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}
	return results, nil
}

// Delete removes entries; missing ids are a no-op.
func (s *Store) Delete(ctx context.Context, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", domain.ErrVectorStore, err)
	}
	defer tx.Rollback()

	for _, id := range chunkIDs {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE chunk_id = ?`, id); err != nil {
			return fmt.Errorf("%w: delete %s: %v", domain.ErrVectorStore, id, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrVectorStore, err)
	}

	for _, id := range chunkIDs {
		delete(s.entries, id)
	}
	return nil
}

// Hashes returns the stored content hash for each existing id.
func (s *Store) Hashes(_ context.Context, chunkIDs []string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for _, id := range chunkIDs {
		if e, ok := s.entries[id]; ok {
			out[id] = e.ContentHash
		}
	}
	return out, nil
}

// TagCounts aggregates how often each tag keyword occurs across the
// indexed chunks, per category. Used for corpus reports.
func (s *Store) TagCounts(_ context.Context) (map[domain.TagCategory]map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.TagCategory]map[string]int)
	for _, e := range s.entries {
		for category, keywords := range e.Tags {
			for _, kw := range keywords {
				if counts[category] == nil {
					counts[category] = make(map[string]int)
				}
				counts[category][kw]++
			}
		}
	}
	return counts, nil
}

// Metric returns the similarity metric this store ranks by.
func (s *Store) Metric() domain.Metric {
	return s.metric
}

// Dimensions returns the vector size, or 0 while the store is empty.
func (s *Store) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) similarity(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	if s.metric == domain.MetricDot {
		return dot
	}
	var na, nb float64
	for i := range a {
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, x := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(x))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	v := make([]float32, len(buf)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return v
}
