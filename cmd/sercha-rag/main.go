// Command sercha-rag ingests documents into a local vector index and
// assembles attributed context for language models.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-rag/internal/app"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/core/services"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetVersion(version)
	cli.SetBootstrap(bootstrap)
	cli.SetSettingsOpener(openSettings)

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func bootstrap(ctx context.Context, opts cli.Options) (*cli.Services, error) {
	a, err := app.New(ctx, app.Options{
		ConfigDir:  opts.ConfigDir,
		DataDir:    opts.DataDir,
		Collection: opts.Collection,
		Backend:    domain.StorageBackend(opts.Backend),
	})
	if err != nil {
		return nil, err
	}
	return &cli.Services{
		Ingest:     a.Ingest,
		Retrieval:  a.Retrieval,
		Collection: a.Collection,
		Settings:   a.SettingsService,
		Extractors: a.Extractors,
		Close:      a.Close,
	}, nil
}

func openSettings(opts cli.Options) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(opts.ConfigDir)
	if err != nil {
		return nil, err
	}
	return services.NewSettingsService(store), nil
}
