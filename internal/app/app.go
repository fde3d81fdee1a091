// Package app is the composition root. It builds every adapter and service
// from settings exactly once and hands them to the driving adapters.
//
// An App is constructed by New and must not be copied. Its services are safe
// for concurrent use and remain valid until Close.
package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

// DefaultEnvFile is loaded from the working directory when present.
const DefaultEnvFile = ".env"

// EnvOpenAIKey fills an empty OpenAI API key.
const EnvOpenAIKey = "OPENAI_API_KEY"

// Options overrides configuration at startup. Empty fields fall back to
// the config file and then to defaults.
type Options struct {
	// ConfigDir holds config.toml. Empty means ~/.sercha-rag.
	ConfigDir string

	// DataDir holds the index database. Empty means <config dir>/data.
	DataDir string

	// Collection selects the collection to open.
	Collection string

	// Backend selects the storage engine.
	Backend domain.StorageBackend

	// EnvFile is the dotenv file to load. Empty means DefaultEnvFile.
	EnvFile string

	// ConfigStore replaces the TOML file store.
	ConfigStore driven.ConfigStore
}

// App holds the constructed services.
type App struct {
	Settings        domain.AppSettings
	SettingsService *services.SettingsService
	Embedder        driven.EmbeddingService
	Store           driven.VectorStore
	Index           *services.VectorIndex
	Dedup           *services.Deduplicator
	Extractors      *normalisers.Registry
	Ingest          *services.IngestService
	Retrieval       *services.RetrievalService
	Collection      *services.CollectionService

	closers   []func() error
	closeOnce sync.Once
	closeErr  error
}

// New loads settings, checks the embedding model and opens the collection.
// An unavailable embedding model is returned as
// domain.ErrEmbeddingModelUnavailable and the caller must not proceed.
func New(ctx context.Context, opts Options) (*App, error) {
	if err := loadEnv(opts.EnvFile); err != nil {
		return nil, err
	}

	configStore := opts.ConfigStore
	if configStore == nil {
		fileStore, err := file.NewConfigStore(opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		configStore = fileStore
	}

	settingsService := services.NewSettingsService(configStore)
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	applyOverrides(settings, opts)
	applyEnv(settings)

	if err := services.ValidateSettings(settings); err != nil {
		return nil, err
	}

	a := &App{
		Settings:        *settings,
		SettingsService: settingsService,
	}

	done := logger.Timed("Startup")
	defer done()

	embedder, err := ai.CreateAndValidateEmbeddingService(ctx, &settings.Embedding)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, embedder.Close)
	a.Embedder = embedder

	store, err := a.openStore(settings.Index)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store

	a.Index = services.NewVectorIndex(store, embedder,
		services.WithBatchSize(settings.Embedding.BatchSize))
	a.Dedup = services.NewDeduplicator(a.Index)
	a.Extractors = normalisers.NewDefaultRegistry()

	split := chunker.New(
		chunker.WithChunkSize(settings.Chunker.ChunkSize),
		chunker.WithOverlap(settings.Chunker.ChunkOverlap),
	)

	a.Ingest = services.NewIngestService(split, a.Dedup, a.Index, a.Extractors)
	a.Retrieval = services.NewRetrievalService(a.Index, settings.Context)
	a.Collection = services.NewCollectionService(a.Index, a.Dedup)

	logger.Info("Collection %s open at %s", a.Index.Collection(), a.Index.Location())
	return a, nil
}

func (a *App) openStore(cfg domain.IndexSettings) (driven.VectorStore, error) {
	switch cfg.Backend {
	case domain.StorageMemory:
		return memory.NewVectorStore(cfg.Collection), nil

	case domain.StorageSQLite:
		db, err := sqlite.NewStore(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return db.VectorStore(cfg.Collection)

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", domain.ErrInvalidInput, cfg.Backend)
	}
}

// Close releases the store and the embedder. It is safe to call twice.
func (a *App) Close() error {
	a.closeOnce.Do(func() {
		var errs []error
		for i := len(a.closers) - 1; i >= 0; i-- {
			if err := a.closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

// applyOverrides lets command-line options win over the config file.
func applyOverrides(settings *domain.AppSettings, opts Options) {
	if opts.Collection != "" {
		settings.Index.Collection = opts.Collection
	}
	if opts.Backend != "" {
		settings.Index.Backend = opts.Backend
	}
	switch {
	case opts.DataDir != "":
		settings.Index.DataDir = opts.DataDir
	case settings.Index.DataDir == "" && opts.ConfigDir != "":
		settings.Index.DataDir = filepath.Join(opts.ConfigDir, "data")
	}
}

// applyEnv fills secrets from the environment.
func applyEnv(settings *domain.AppSettings) {
	if settings.Embedding.Provider == domain.AIProviderOpenAI && settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = os.Getenv(EnvOpenAIKey)
	}
}

// loadEnv loads a dotenv file. A missing file is not an error.
func loadEnv(path string) error {
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("loading %s: %w", path, err)
	}
	logger.Debug("Loaded environment from %s", path)
	return nil
}
