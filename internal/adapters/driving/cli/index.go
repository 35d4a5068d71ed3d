package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mira-labs/mira/internal/chunker"
	"github.com/mira-labs/mira/internal/core/domain"
	"github.com/mira-labs/mira/internal/core/services"
	"github.com/mira-labs/mira/internal/logger"
	"github.com/mira-labs/mira/internal/tagger"
)

var indexConcurrency int

var indexCmd = &cobra.Command{
	Use:   "index [dir]",
	Short: "Index cleaned documents into the vector store",
	Long: `Reads cleaned document JSON files from a directory, splits them into
chunks, tags each chunk with mining metadata, embeds the chunks and
upserts them into the configured vector store. Chunks whose content is
unchanged since the last run are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().IntVar(&indexConcurrency, "concurrency", services.DefaultConcurrency, "documents processed in parallel")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	docs, err := loadDocuments(args[0])
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}
	logger.Info("loaded %d documents from %s", len(docs), args[0])

	splitter, err := chunker.New(
		chunker.WithChunkSize(cfg.Chunking.Size),
		chunker.WithOverlap(cfg.Chunking.Overlap),
	)
	if err != nil {
		return fmt.Errorf("chunker: %w", err)
	}

	tag, err := tagger.New(tagger.DefaultDictionary())
	if err != nil {
		return fmt.Errorf("tagger: %w", err)
	}

	b, err := openBackends(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	pipeline, err := services.NewPipelineService(splitter, tag, b.embedder, b.store)
	if err != nil {
		return err
	}
	pipeline.SetConcurrency(indexConcurrency)

	report, err := pipeline.Run(ctx, docs)
	if err != nil {
		return fmt.Errorf("index run: %w", err)
	}

	cmd.Printf("Run %s: %d chunks embedded, %d unchanged chunks skipped\n",
		report.RunID, report.Embedded, report.Skipped)
	if len(report.Failures) > 0 {
		cmd.Printf("%d documents failed:\n", len(report.Failures))
		for _, f := range report.Failures {
			cmd.Printf("  %s: %v\n", f.DocID, f.Err)
		}
		return fmt.Errorf("%d of %d documents failed", len(report.Failures), len(docs))
	}
	return nil
}

// loadDocuments reads every .json file in dir. A file holds either a
// single cleaned document object or an array of them.
func loadDocuments(dir string) ([]domain.CleanedDocument, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory: %w", err)
	}

	var docs []domain.CleanedDocument
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			var batch []domain.CleanedDocument
			if err := json.Unmarshal(data, &batch); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
			docs = append(docs, batch...)
			continue
		}

		var doc domain.CleanedDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		docs = append(docs, doc)
	}

	for i, doc := range docs {
		if doc.ID == "" {
			return nil, fmt.Errorf("%w: document %d has no id", domain.ErrInvalidConfig, i)
		}
	}
	return docs, nil
}
