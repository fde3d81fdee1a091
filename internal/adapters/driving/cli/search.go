package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	searchLimit int
	searchWhere []string
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed chunks",
	Long: `Embeds the query and returns the nearest chunks by cosine distance,
best match first. Filter by metadata with --where field=value,
field!=value or field~=a|b.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultK, "maximum number of results")
	searchCmd.Flags().StringArrayVar(&searchWhere, "where", nil, "metadata filter (repeatable)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	if retrievalService == nil {
		return notConfigured("search")
	}

	filter, err := domain.ParseFilter(searchWhere...)
	if err != nil {
		return err
	}

	opts := domain.SearchOptions{
		K:      searchLimit,
		Filter: filter,
	}

	resp, err := retrievalService.Search(cmd.Context(), query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	printWarnings(cmd, resp.Warnings)

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}

	return outputSearchTable(cmd, resp.Results)
}

type searchResultJSON struct {
	Source     string          `json:"source"`
	ChunkIndex int             `json:"chunk_index"`
	Distance   float64         `json:"distance"`
	Relevance  float64         `json:"relevance"`
	Text       string          `json:"text"`
	Metadata   domain.Metadata `json:"metadata,omitempty"`
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	out := make([]searchResultJSON, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = searchResultJSON{
			Source:     r.Chunk.Source,
			ChunkIndex: r.Chunk.ChunkIndex,
			Distance:   r.Distance,
			Relevance:  r.Relevance(),
			Text:       r.Chunk.Text,
			Metadata:   r.Chunk.Metadata,
		}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println(render(styles.Title, "Results:"))
	cmd.Println()
	for i := range results {
		r := results[i]
		// Format: [N] source, chunk i (relevance%)
		cmd.Printf("  [%d] %s, chunk %d %s\n", i+1,
			render(styles.Source, r.Chunk.Source), r.Chunk.ChunkIndex,
			render(styles.Muted, fmt.Sprintf("(%.0f%% relevant, distance %.3f)", r.Relevance()*100, r.Distance)))
		snippet := strings.Join(strings.Fields(domain.Preview(r.Chunk.Text)), " ")
		if snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		cmd.Println()
	}

	return nil
}

func printWarnings(cmd *cobra.Command, warnings []string) {
	for _, w := range warnings {
		cmd.PrintErrf("%s %s\n", render(styles.Warning, "warning:"), w)
	}
}
