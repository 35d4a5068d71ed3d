package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mira-labs/mira/internal/core/services"
)

var (
	askTopK    int
	askRegion  string
	askDocType string
	askTags    []string
	askJSON    bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from indexed documents",
	Long: `Retrieves the most relevant indexed chunks for the question and asks
the configured LLM to answer from them. The answer lists the chunk ids
it was grounded on.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntVarP(&askTopK, "top-k", "n", 0, "chunks to retrieve (default from config)")
	askCmd.Flags().StringVar(&askRegion, "region", "", "filter by region, e.g. nsw")
	askCmd.Flags().StringVar(&askDocType, "doc-type", "", "filter by document type, e.g. safety_alert")
	askCmd.Flags().StringArrayVar(&askTags, "tag", nil, "filter by tag as category=keyword, repeatable")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filter, err := buildFilter(askRegion, askDocType, askTags)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, true)
	if err != nil {
		return err
	}
	defer b.Close()

	search, err := newSearchService(b)
	if err != nil {
		return err
	}

	rag, err := services.NewRagService(search, b.llm)
	if err != nil {
		return err
	}
	rag.SetMaxContextChars(cfg.Rag.MaxContextChars)
	rag.SetMaxTokens(cfg.Rag.MaxTokens)

	answer, err := rag.Answer(ctx, args[0], askTopK, filter)
	if err != nil {
		return fmt.Errorf("answer failed: %w", err)
	}

	if askJSON {
		data, err := json.MarshalIndent(answer, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal answer: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(answer.AnswerText)
	if len(answer.Citations) > 0 {
		cmd.Println()
		cmd.Println("Sources:")
		for _, id := range answer.Citations {
			cmd.Printf("  %s\n", id)
		}
	}
	return nil
}
