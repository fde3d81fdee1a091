// Package cli provides the cobra command tree for sercha-rag.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// version is set at build time.
var version = "dev"

// Global flags.
var (
	verbose     bool
	configDir   string
	dataDir     string
	collection  string
	backendFlag string
)

// Services are the driving ports the commands run against.
type Services struct {
	Ingest     driving.IngestService
	Retrieval  driving.RetrievalService
	Collection driving.CollectionService
	Settings   driving.SettingsService
	Extractors driven.ExtractorRegistry

	// Close releases the services. Optional.
	Close func() error
}

// Options are the global flag values handed to the bootstrap function.
type Options struct {
	ConfigDir  string
	DataDir    string
	Collection string
	Backend    string
}

// BootstrapFunc builds the services for a command that needs them.
type BootstrapFunc func(ctx context.Context, opts Options) (*Services, error)

// SettingsFunc opens the settings service without starting the embedder.
type SettingsFunc func(opts Options) (driving.SettingsService, error)

var (
	ingestService     driving.IngestService
	retrievalService  driving.RetrievalService
	collectionService driving.CollectionService
	settingsService   driving.SettingsService
	extractorRegistry driven.ExtractorRegistry

	bootstrap     BootstrapFunc
	openSettings  SettingsFunc
	bootstrapOnce sync.Once
	bootstrapErr  error
	closeServices func() error

	// styled enables lipgloss output when stdout is a terminal.
	styled bool
)

// Command annotation naming what a command needs before it runs.
const (
	annotationNeeds = "needs"
	needsServices   = "services"
	needsSettings   = "settings"
)

var rootCmd = &cobra.Command{
	Use:   "sercha-rag",
	Short: "Local retrieval-augmented generation toolkit",
	Long: `Sercha RAG chunks, deduplicates, embeds and indexes your documents,
then assembles attributed context for a language model to answer from.`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	flags.StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.sercha-rag)")
	flags.StringVar(&dataDir, "data-dir", "", "index data directory (default <config-dir>/data)")
	flags.StringVar(&collection, "collection", "", "collection name")
	flags.StringVar(&backendFlag, "backend", "", "storage backend: sqlite or memory")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetBootstrap sets the function that builds services on first use.
func SetBootstrap(fn BootstrapFunc) {
	bootstrap = fn
}

// SetSettingsOpener sets the function that opens the settings service.
func SetSettingsOpener(fn SettingsFunc) {
	openSettings = fn
}

// SetServices injects already-built services, bypassing bootstrap.
func SetServices(s *Services) {
	ingestService = s.Ingest
	retrievalService = s.Retrieval
	collectionService = s.Collection
	settingsService = s.Settings
	extractorRegistry = s.Extractors
	closeServices = s.Close
}

// Execute runs the root command with ctx and releases services afterwards.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("Closing services: %v", err)
			}
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func persistentPreRun(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	logger.SetColor(term.IsTerminal(int(os.Stderr.Fd())))
	styled = isTerminal(cmd)

	opts := Options{
		ConfigDir:  configDir,
		DataDir:    dataDir,
		Collection: collection,
		Backend:    backendFlag,
	}

	switch cmd.Annotations[annotationNeeds] {
	case needsServices:
		return ensureServices(cmd.Context(), opts)
	case needsSettings:
		return ensureSettings(opts)
	}
	return nil
}

// ensureServices runs the bootstrap at most once per process.
func ensureServices(ctx context.Context, opts Options) error {
	if retrievalService != nil || bootstrap == nil {
		return nil
	}
	bootstrapOnce.Do(func() {
		var s *Services
		s, bootstrapErr = bootstrap(ctx, opts)
		if bootstrapErr == nil {
			SetServices(s)
		}
	})
	if bootstrapErr != nil {
		return fmt.Errorf("starting: %w", bootstrapErr)
	}
	return nil
}

func ensureSettings(opts Options) error {
	if settingsService != nil || openSettings == nil {
		return nil
	}
	svc, err := openSettings(opts)
	if err != nil {
		return fmt.Errorf("opening settings: %w", err)
	}
	settingsService = svc
	return nil
}

// isTerminal reports whether the command writes to a terminal.
func isTerminal(cmd *cobra.Command) bool {
	f, ok := cmd.OutOrStdout().(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

var errNotConfigured = errors.New("not configured")

func notConfigured(what string) error {
	return fmt.Errorf("%s service %w", what, errNotConfigured)
}
