package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/watcher"
)

var (
	watchInitial  bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep the collection in sync with a folder",
	Long: `Ingests the supported files in a folder, then watches it until
interrupted. New files are ingested, changed files are replaced and
deleted files are forgotten.`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{annotationNeeds: needsServices},
	RunE:        runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "ingest existing files before watching")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a change is applied")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil || collectionService == nil {
		return notConfigured("ingest")
	}

	w := watcher.New(args[0], watcher.WithDebounce(watchDebounce), watcher.WithFilter(supported))
	if err := w.Validate(); err != nil {
		return fmt.Errorf("cannot watch: %w", err)
	}

	ctx := cmd.Context()
	if watchInitial {
		files, err := w.Scan(ctx)
		if err != nil {
			return err
		}
		for _, path := range files {
			applyChange(ctx, cmd, watcher.Change{Type: watcher.ChangeCreated, Path: path})
		}
	}

	changes, errs, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", w.Root())

	for {
		select {
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			applyChange(ctx, cmd, change)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			logger.Warn("Watcher: %v", err)
		}
	}
}

// applyChange mirrors one file change into the collection. Failures are
// reported and do not stop watching.
func applyChange(ctx context.Context, cmd *cobra.Command, change watcher.Change) {
	source := filepath.Base(change.Path)

	if change.Type == watcher.ChangeUpdated || change.Type == watcher.ChangeDeleted {
		n, err := collectionService.DeleteSource(ctx, source)
		if err != nil {
			cmd.PrintErrf("%s %s: %v\n", render(styles.Error, "failed"), source, err)
			return
		}
		if change.Type == watcher.ChangeDeleted {
			if n > 0 {
				cmd.Printf("%s: removed %d chunks\n", render(styles.Source, source), n)
			}
			return
		}
	}

	report, err := ingestFile(ctx, ingestService, change.Path)
	if err != nil {
		cmd.PrintErrf("%s %s: %v\n", render(styles.Error, "failed"), source, err)
		return
	}
	printReport(cmd, report)
}
