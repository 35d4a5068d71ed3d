// Package cli implements the mira command line interface.
package cli

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mira-labs/mira/internal/config"
	"github.com/mira-labs/mira/internal/core/ports/driven"
	"github.com/mira-labs/mira/internal/core/services"
	"github.com/mira-labs/mira/internal/logger"
)

var (
	verbose    bool
	configPath string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "mira",
	Short: "Search and question-answering over mining safety documents",
	Long: `mira indexes cleaned mining industry documents into a vector store
and answers questions about them with cited sources.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// A missing .env is fine; explicit environment wins anyway.
		_ = godotenv.Load()

		logger.SetVerbose(verbose)

		path := configPath
		if path == "" {
			var err error
			path, err = config.DefaultPath()
			if err != nil {
				return err
			}
		}

		var err error
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Debug("config loaded from %s", path)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.mira/config.toml)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// backends bundles the driven adapters a command needs, so each
// command opens only what it uses and closes everything it opened.
type backends struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	llm      driven.LLMService
}

func (b *backends) Close() {
	if b.llm != nil {
		b.llm.Close()
	}
	if b.store != nil {
		b.store.Close()
	}
	if b.embedder != nil {
		b.embedder.Close()
	}
}

// openBackends builds the embedder and vector store from config.
func openBackends(ctx context.Context, withLLM bool) (*backends, error) {
	b := &backends{}

	embedder, err := cfg.BuildEmbedder()
	if err != nil {
		return nil, fmt.Errorf("embedding backend: %w", err)
	}
	b.embedder = embedder
	logger.Debug("embedding backend: %s (%d dimensions)", embedder.ModelName(), embedder.Dimensions())

	store, err := cfg.BuildVectorStore(ctx, embedder)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("vector store: %w", err)
	}
	b.store = store

	if withLLM {
		llm, err := cfg.BuildLLM()
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("llm backend: %w", err)
		}
		b.llm = llm
		logger.Debug("llm backend: %s", llm.ModelName())
	}

	return b, nil
}

// newSearchService wires retrieval on top of opened backends.
func newSearchService(b *backends) (*services.SearchService, error) {
	return services.NewSearchService(b.embedder, b.store, cfg.Search.TopK)
}
