package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	infoJSON  bool
	clearYes  bool
	stdinFile = os.Stdin
)

var infoCmd = &cobra.Command{
	Use:         "info",
	Short:       "Show collection info",
	Long:        `Shows the collection name, chunk count, vector dimension, embedding model and storage location.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runInfo,
}

var sourcesCmd = &cobra.Command{
	Use:         "sources",
	Short:       "List indexed documents",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runSources,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every chunk from the collection",
	Long: `Removes every chunk from the collection. The collection stays usable
and previously seen content can be ingested again.`,
	Args:        cobra.NoArgs,
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runClear,
}

var forgetCmd = &cobra.Command{
	Use:         "forget [source]",
	Short:       "Remove one document from the collection",
	Long:        `Removes every chunk of one document so a changed version can be ingested again.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runForget,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "output info as JSON")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(forgetCmd)
}

func runInfo(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	info, err := collectionService.Info(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get collection info: %w", err)
	}

	if infoJSON {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal info: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(render(styles.Title, "Collection"))
	cmd.Printf("  Name:      %s\n", info.Name)
	cmd.Printf("  Chunks:    %d\n", info.Count)
	if info.Dimension > 0 {
		cmd.Printf("  Dimension: %d\n", info.Dimension)
	} else {
		cmd.Printf("  Dimension: (empty)\n")
	}
	cmd.Printf("  Model:     %s\n", info.Model)
	cmd.Printf("  Location:  %s\n", info.Location)
	return nil
}

func runSources(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	sources, err := collectionService.Sources(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list sources: %w", err)
	}
	if len(sources) == 0 {
		cmd.Println("No documents indexed.")
		return nil
	}
	for _, src := range sources {
		cmd.Println(src)
	}
	return nil
}

func runClear(cmd *cobra.Command, _ []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	if !clearYes {
		ok, err := confirm(cmd, stdinFile, "Remove every chunk from the collection?")
		if err != nil {
			return err
		}
		if !ok {
			cmd.Println("Aborted.")
			return nil
		}
	}

	if err := collectionService.Clear(cmd.Context()); err != nil {
		return fmt.Errorf("failed to clear collection: %w", err)
	}
	cmd.Println(render(styles.Success, "Collection cleared."))
	return nil
}

func runForget(cmd *cobra.Command, args []string) error {
	if collectionService == nil {
		return notConfigured("collection")
	}

	n, err := collectionService.DeleteSource(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", args[0], err)
	}
	if n == 0 {
		cmd.Printf("No chunks found for %s.\n", args[0])
		return nil
	}
	cmd.Printf("Removed %d chunks of %s.\n", n, args[0])
	return nil
}

var errNoConfirmation = errors.New("refusing to continue without confirmation; pass --yes")

// confirm asks a yes/no question on a terminal. Non-interactive input
// cannot confirm.
func confirm(cmd *cobra.Command, in *os.File, question string) (bool, error) {
	if in == nil || !term.IsTerminal(int(in.Fd())) {
		return false, errNoConfirmation
	}
	cmd.Printf("%s [y/N]: ", question)
	return readYes(in), nil
}

func readYes(r io.Reader) bool {
	line, _ := bufio.NewReader(r).ReadString('\n') //nolint:errcheck // empty answer means no
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
