package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mira-labs/mira/internal/adapters/driven/vector/sqlite"
	"github.com/mira-labs/mira/internal/core/domain"
)

var reportJSON bool

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarise tag frequencies across the local index",
	Long: `Aggregates how often each tag keyword occurs across the indexed
chunks. Only available with the sqlite vector store.`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	b, err := openBackends(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	local, ok := b.store.(*sqlite.Store)
	if !ok {
		return fmt.Errorf("report requires the sqlite vector store, configured provider is %q", cfg.VectorStore.Provider)
	}

	counts, err := local.TagCounts(ctx)
	if err != nil {
		return fmt.Errorf("aggregate tags: %w", err)
	}

	if reportJSON {
		data, err := json.MarshalIndent(counts, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal report: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(counts) == 0 {
		cmd.Println("Index is empty.")
		return nil
	}

	for _, category := range domain.TagCategories() {
		keywords := counts[category]
		if len(keywords) == 0 {
			continue
		}
		cmd.Printf("%s:\n", category)
		names := make([]string, 0, len(keywords))
		for kw := range keywords {
			names = append(names, kw)
		}
		// Most frequent first, name as tie-break.
		sort.Slice(names, func(i, j int) bool {
			if keywords[names[i]] == keywords[names[j]] {
				return names[i] < names[j]
			}
			return keywords[names[i]] > keywords[names[j]]
		})
		for _, kw := range names {
			cmd.Printf("  %-30s %d\n", kw, keywords[kw])
		}
		cmd.Println()
	}
	return nil
}
