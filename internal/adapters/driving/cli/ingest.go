package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

var ingestJSON bool

var ingestCmd = &cobra.Command{
	Use:   "ingest [file-or-dir...]",
	Short: "Add documents to the collection",
	Long: `Extracts text from each file, splits it into overlapping chunks, skips
chunks already in the collection and stores the rest with their embeddings.

Directories are walked recursively; only supported file types are ingested.`,
	Args:        cobra.MinimumNArgs(1),
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestJSON, "json", false, "output reports as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return notConfigured("ingest")
	}

	paths, err := expandPaths(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	var reports []*domain.IngestReport
	failed := 0
	for _, path := range paths {
		report, err := ingestFile(ctx, ingestService, path)
		if err != nil {
			cmd.PrintErrf("%s %s: %v\n", render(styles.Error, "failed"), path, err)
			failed++
			continue
		}
		reports = append(reports, report)
		if !ingestJSON {
			printReport(cmd, report)
		}
	}

	if ingestJSON {
		data, err := json.MarshalIndent(reports, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal reports: %w", err)
		}
		cmd.Println(string(data))
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d files failed to ingest", failed, len(paths))
	}
	return nil
}

// ingestFile reads one file and hands it to the ingest service.
// The file's base name is the document source.
func ingestFile(ctx context.Context, svc driving.IngestService, path string) (*domain.IngestReport, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}
	return svc.IngestUpload(ctx, domain.Upload{
		Filename: filepath.Base(path),
		Content:  content,
	})
}

// expandPaths replaces directories with the supported files inside them.
func expandPaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !supported(path) {
				return nil
			}
			paths = append(paths, path)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", arg, err)
		}
	}
	return paths, nil
}

// supported reports whether the extractor registry can read path.
// Without a registry every file is attempted.
func supported(path string) bool {
	if extractorRegistry == nil {
		return true
	}
	return extractorRegistry.Supports(&domain.Upload{Filename: filepath.Base(path)})
}

func printReport(cmd *cobra.Command, r *domain.IngestReport) {
	cmd.Printf("%s: %d new chunks stored (skipped %d duplicates of %d)\n",
		render(styles.Source, r.Source), r.Added, r.Skipped, r.Chunks)
}
