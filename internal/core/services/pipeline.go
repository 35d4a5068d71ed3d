package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mira-labs/mira/internal/chunker"
	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/logger"
	"github.com/mira-labs/mira/internal/tagger"
)

// DefaultConcurrency bounds how many documents are processed at once.
const DefaultConcurrency = 4

// DocumentFailure records why a single document could not be embedded.
type DocumentFailure struct {
	DocID string
	Err   error
}

// Report summarises a pipeline run. A run makes maximal progress:
// failures are collected here instead of aborting the batch.
type Report struct {
	// RunID identifies the run in logs and reports.
	RunID string

	// Embedded is the number of chunks embedded and upserted.
	Embedded int

	// Skipped is the number of chunks left untouched because the store
	// already held an identical content hash.
	Skipped int

	// Failures lists documents that could not be fully processed.
	Failures []DocumentFailure
}

// PipelineService orchestrates chunk, tag, embed and upsert for a batch
// of cleaned documents. Documents are independent and processed
// concurrently; chunk order within a document is carried by the chunk
// index, never by arrival order.
type PipelineService struct {
	splitter    *chunker.Splitter
	tagger      *tagger.Tagger
	embedder    driven.EmbeddingService
	store       driven.VectorStore
	concurrency int
}

// NewPipelineService wires the pipeline. All collaborators are required.
func NewPipelineService(
	splitter *chunker.Splitter,
	tg *tagger.Tagger,
	embedder driven.EmbeddingService,
	store driven.VectorStore,
) (*PipelineService, error) {
	if splitter == nil || tg == nil || embedder == nil || store == nil {
		return nil, fmt.Errorf("%w: pipeline requires splitter, tagger, embedder and store", domain.ErrInvalidConfig)
	}
	return &PipelineService{
		splitter:    splitter,
		tagger:      tg,
		embedder:    embedder,
		store:       store,
		concurrency: DefaultConcurrency,
	}, nil
}

// SetConcurrency overrides the per-document parallelism. Values below 1
// are ignored.
func (p *PipelineService) SetConcurrency(n int) {
	if n >= 1 {
		p.concurrency = n
	}
}

// Run processes the batch and reports how many chunks were embedded,
// how many were skipped as unchanged, and which documents failed.
// Only context cancellation aborts the run early; already-upserted
// chunks stay valid and a re-run resumes via the skip policy.
func (p *PipelineService) Run(ctx context.Context, docs []domain.CleanedDocument) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	logger.Section("Embedding Pipeline")
	logger.Info("Run %s: %d documents", report.RunID, len(docs))

	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, doc := range docs {
		doc := doc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			embedded, skipped, err := p.processDocument(ctx, doc)

			mu.Lock()
			defer mu.Unlock()
			report.Embedded += embedded
			report.Skipped += skipped
			if err != nil {
				// A cancelled context stops the whole run; anything else
				// is recorded so the batch keeps going.
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("Document %s failed: %v", doc.ID, err)
				report.Failures = append(report.Failures, DocumentFailure{DocID: doc.ID, Err: err})
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return report, err
	}

	logger.Info("Run %s done: embedded=%d skipped=%d failed=%d",
		report.RunID, report.Embedded, report.Skipped, len(report.Failures))
	return report, nil
}

// processDocument runs one document through chunk → tag → embed →
// upsert. Returns how many chunks were embedded and skipped.
func (p *PipelineService) processDocument(ctx context.Context, doc domain.CleanedDocument) (int, int, error) {
	chunks := p.splitter.Split(doc)
	if len(chunks) == 0 {
		logger.Debug("Document %s: empty, nothing to embed", doc.ID)
		return 0, 0, nil
	}

	tagged := make([]domain.TaggedChunk, len(chunks))
	for i, c := range chunks {
		tagged[i] = p.tagger.Tag(c, doc.Region, doc.DocType)
	}

	// Skip chunks whose stored hash matches the current content.
	ids := make([]string, len(tagged))
	for i, tc := range tagged {
		ids[i] = tc.ID()
	}
	stored, err := p.store.Hashes(ctx, ids)
	if err != nil {
		return 0, 0, fmt.Errorf("check existing chunks: %w", err)
	}

	pending := make([]domain.TaggedChunk, 0, len(tagged))
	skipped := 0
	for _, tc := range tagged {
		if hash, ok := stored[tc.ID()]; ok && hash == domain.ContentHash(tc.Text) {
			skipped++
			continue
		}
		pending = append(pending, tc)
	}
	if len(pending) == 0 {
		logger.Debug("Document %s: all %d chunks up to date", doc.ID, skipped)
		return 0, skipped, nil
	}

	texts := make([]string, len(pending))
	for i, tc := range pending {
		texts[i] = tc.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, skipped, fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(texts) {
		return 0, skipped, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrEmbeddingBackend, len(vectors), len(texts))
	}

	entries := make([]domain.EmbeddedChunk, len(pending))
	for i, tc := range pending {
		entries[i] = domain.EmbeddedChunk{
			ChunkID:     tc.ID(),
			Vector:      vectors[i],
			ContentHash: domain.ContentHash(tc.Text),
			Tags:        tc.Tags,
			Region:      tc.Region,
			DocType:     tc.DocType,
			Text:        tc.Text,
		}
	}

	if err := p.store.Upsert(ctx, entries); err != nil {
		return 0, skipped, fmt.Errorf("upsert %d chunks: %w", len(entries), err)
	}

	logger.Debug("Document %s: embedded %d chunks, skipped %d", doc.ID, len(entries), skipped)
	return len(entries), skipped, nil
}
