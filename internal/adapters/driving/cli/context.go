package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

var (
	contextK         int
	contextMaxLength int
	contextWhere     []string
	contextJSON      bool
)

var contextCmd = &cobra.Command{
	Use:   "context [query]",
	Short: "Assemble attributed context for a question",
	Long: `Retrieves the chunks nearest to the query and joins them into a
labelled, length-bounded context block, followed by the sources it cites.
The output is ready to paste into a language model prompt.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runContext,
}

func init() {
	contextCmd.Flags().IntVarP(&contextK, "top-k", "k", 0, "number of candidate chunks (default from settings)")
	contextCmd.Flags().IntVar(&contextMaxLength, "max-length", 0, "context budget in characters (default from settings)")
	contextCmd.Flags().StringArrayVar(&contextWhere, "where", nil, "metadata filter (repeatable)")
	contextCmd.Flags().BoolVar(&contextJSON, "json", false, "output context and sources as JSON")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return notConfigured("retrieval")
	}

	filter, err := domain.ParseFilter(contextWhere...)
	if err != nil {
		return err
	}

	result, err := retrievalService.GetContext(cmd.Context(), args[0], domain.ContextOptions{
		K:         contextK,
		MaxLength: contextMaxLength,
		Filter:    filter,
	})
	if err != nil {
		return fmt.Errorf("context failed: %w", err)
	}

	printWarnings(cmd, result.Warnings)

	if contextJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal context: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(result.Context)
	if !result.HasContext() {
		return nil
	}

	cmd.Println()
	cmd.Println(render(styles.Title, "Sources:"))
	for i, src := range result.Sources {
		cmd.Printf("  [%d] %s, chunk %d %s\n", i+1,
			render(styles.Source, src.Source), src.ChunkIndex,
			render(styles.Muted, fmt.Sprintf("(%.0f%% relevant)", src.Relevance*100)))
	}
	if result.Truncated {
		cmd.Println(render(styles.Muted, "Context was truncated to fit the length budget."))
	}
	return nil
}
