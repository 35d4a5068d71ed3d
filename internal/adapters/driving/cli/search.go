package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mira-labs/mira/internal/core/domain"
)

var (
	searchTopK    int
	searchRegion  string
	searchDocType string
	searchTags    []string
	searchJSON    bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed document chunks",
	Long: `Embeds the query and returns the most similar indexed chunks.
Results can be narrowed by region, document type and tag filters;
filters are combined with AND.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "n", 0, "maximum number of results (default from config)")
	searchCmd.Flags().StringVar(&searchRegion, "region", "", "filter by region, e.g. nsw")
	searchCmd.Flags().StringVar(&searchDocType, "doc-type", "", "filter by document type, e.g. safety_alert")
	searchCmd.Flags().StringArrayVar(&searchTags, "tag", nil, "filter by tag as category=keyword, repeatable")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	filter, err := buildFilter(searchRegion, searchDocType, searchTags)
	if err != nil {
		return err
	}

	b, err := openBackends(ctx, false)
	if err != nil {
		return err
	}
	defer b.Close()

	search, err := newSearchService(b)
	if err != nil {
		return err
	}

	results, err := search.Search(ctx, args[0], searchTopK, filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		cmd.Printf("[%d] %s (%.4f)\n", i+1, r.ChunkID, r.Score)
		if r.Region != "" || r.DocType != "" {
			cmd.Printf("    %s %s\n", r.Region, r.DocType)
		}
		cmd.Printf("    %s\n\n", snippet(r.Text, 200))
	}
	return nil
}

// buildFilter parses --tag flags of the form category=keyword into a
// metadata filter.
func buildFilter(region, docType string, tags []string) (domain.Filter, error) {
	filter := domain.Filter{Region: region, DocType: docType}
	for _, spec := range tags {
		category, keyword, ok := strings.Cut(spec, "=")
		if !ok || category == "" || keyword == "" {
			return domain.Filter{}, fmt.Errorf("invalid tag filter %q, expected category=keyword", spec)
		}
		if !validCategory(domain.TagCategory(category)) {
			return domain.Filter{}, fmt.Errorf("unknown tag category %q", category)
		}
		if filter.Tags == nil {
			filter.Tags = make(map[domain.TagCategory][]string)
		}
		filter.Tags[domain.TagCategory(category)] = append(filter.Tags[domain.TagCategory(category)], keyword)
	}
	return filter, nil
}

func validCategory(c domain.TagCategory) bool {
	for _, known := range domain.TagCategories() {
		if c == known {
			return true
		}
	}
	return false
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
