package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
	"github.com/custodia-labs/sercha-rag/internal/normalisers"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-rag/internal/watcher"
)

// testServices wires real services over an in-memory store and the
// deterministic hashing embedder.
type testServices struct {
	ingest     *services.IngestService
	retrieval  *services.RetrievalService
	collection *services.CollectionService
	settings   *services.SettingsService
}

func newTestServices() *testServices {
	store := memory.NewVectorStore("test")
	index := services.NewVectorIndex(store, hashing.NewEmbeddingService(64))
	dedup := services.NewDeduplicator(index)
	split := chunker.New(chunker.WithChunkSize(200), chunker.WithOverlap(20))
	return &testServices{
		ingest:     services.NewIngestService(split, dedup, index, normalisers.NewDefaultRegistry()),
		retrieval:  services.NewRetrievalService(index, domain.ContextSettings{}),
		collection: services.NewCollectionService(index, dedup),
		settings:   services.NewSettingsService(memory.NewConfigStore()),
	}
}

// setupTestServices injects fresh services and returns a cleanup function
// restoring the previous ones.
func setupTestServices() (*testServices, func()) {
	old := Services{
		Ingest:     ingestService,
		Retrieval:  retrievalService,
		Collection: collectionService,
		Settings:   settingsService,
		Extractors: extractorRegistry,
		Close:      closeServices,
	}

	ts := newTestServices()
	SetServices(&Services{
		Ingest:     ts.ingest,
		Retrieval:  ts.retrieval,
		Collection: ts.collection,
		Settings:   ts.settings,
		Extractors: normalisers.NewDefaultRegistry(),
	})

	return ts, func() {
		SetServices(&old)
	}
}

// clearServices removes all services and returns a cleanup function.
func clearServices() func() {
	old := Services{
		Ingest:     ingestService,
		Retrieval:  retrievalService,
		Collection: collectionService,
		Settings:   settingsService,
		Extractors: extractorRegistry,
		Close:      closeServices,
	}
	oldBootstrap, oldSettings := bootstrap, openSettings
	SetServices(&Services{})
	bootstrap, openSettings = nil, nil
	return func() {
		SetServices(&old)
		bootstrap, openSettings = oldBootstrap, oldSettings
		bootstrapOnce = sync.Once{}
		bootstrapErr = nil
	}
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	defer resetFlags()

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

// resetFlags restores flag variables, which persist across executions.
func resetFlags() {
	rootCmd.SetArgs(nil)
	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)

	verbose, configDir, dataDir, collection, backendFlag = false, "", "", "", ""
	ingestJSON = false
	searchLimit, searchJSON = domain.DefaultK, false
	contextK, contextMaxLength, contextJSON = 0, 0, false
	infoJSON, clearYes = false, false
	embedProvider, embedModel, embedAPIKey = "", "", ""
	watchInitial, watchDebounce = true, watcher.DefaultDebounce
	serveAddr, serveMaxUpload, serveNoMCP = ":8080", httpapi.DefaultMaxUploadBytes, false
	_ = mcpCmd.Flags().Set("http", "") //nolint:errcheck // flag is registered in init

	for _, f := range []*pflag.Flag{
		searchCmd.Flags().Lookup("where"),
		contextCmd.Flags().Lookup("where"),
	} {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil) //nolint:errcheck // stringArray Replace never fails
		}
	}
}

func ingestText(t *testing.T, ts *testServices, source, text string) {
	t.Helper()
	_, err := ts.ingest.Ingest(context.Background(), domain.IngestRequest{Text: text, Source: source})
	require.NoError(t, err)
}
