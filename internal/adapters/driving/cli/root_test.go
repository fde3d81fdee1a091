package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

func TestRootCmd_Commands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"ingest", "search", "context", "info", "sources", "clear", "forget", "watch", "mcp", "serve", "settings", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"verbose", "config-dir", "data-dir", "collection", "backend"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
}

func TestBootstrap_RunsOnce(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	ts := newTestServices()
	calls := 0
	var got Options
	SetBootstrap(func(_ context.Context, opts Options) (*Services, error) {
		calls++
		got = opts
		return &Services{
			Ingest:     ts.ingest,
			Retrieval:  ts.retrieval,
			Collection: ts.collection,
		}, nil
	})

	_, _, err := execute(t, "info", "--collection", "notes", "--backend", "memory")
	require.NoError(t, err)
	_, _, err = execute(t, "sources")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, "notes", got.Collection)
	assert.Equal(t, "memory", got.Backend)
}

func TestBootstrap_Error(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	boom := errors.New("boom")
	SetBootstrap(func(context.Context, Options) (*Services, error) {
		return nil, boom
	})

	_, _, err := execute(t, "info")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "starting")
}

func TestBootstrap_NotNeededForVersion(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	SetBootstrap(func(context.Context, Options) (*Services, error) {
		t.Fatal("version must not bootstrap services")
		return nil, nil
	})

	_, _, err := execute(t, "version")
	require.NoError(t, err)
}

func TestSettingsOpener(t *testing.T) {
	cleanup := clearServices()
	defer cleanup()

	var gotDir string
	SetSettingsOpener(func(opts Options) (driving.SettingsService, error) {
		gotDir = opts.ConfigDir
		return services.NewSettingsService(memory.NewConfigStore()), nil
	})

	out, _, err := execute(t, "settings", "--config-dir", "/tmp/sercha-test")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sercha-test", gotDir)
	assert.Contains(t, out, "Current Settings")
}

func TestExecute_ClosesServices(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	defer resetFlags()

	closed := false
	closeServices = func() error {
		closed = true
		return nil
	}

	rootCmd.SetArgs([]string{"version"})
	require.NoError(t, Execute(context.Background()))
	assert.True(t, closed)
}

func TestNotConfigured(t *testing.T) {
	err := notConfigured("search")
	assert.EqualError(t, err, "search service not configured")
	assert.ErrorIs(t, err, errNotConfigured)
}
