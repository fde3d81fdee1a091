package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/postprocessors/chunker"
)

func TestCollectionService_Info(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(nil)

	info, err := rig.collection.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, &domain.CollectionInfo{
		Name:     "test",
		Model:    "hashing-256",
		Location: rig.store.Location(),
	}, info)

	seedDocA(t, rig)
	info, err = rig.collection.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Count)
	assert.Equal(t, 256, info.Dimension)

	n, err := rig.collection.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCollectionService_ClearAllowsReingest(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(chunker.New())
	req := domain.IngestRequest{Text: "a unique paragraph", Source: "a.txt"}

	_, err := rig.ingest.Ingest(ctx, req)
	require.NoError(t, err)
	require.NoError(t, rig.collection.Clear(ctx))

	report, err := rig.ingest.Ingest(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
}

func TestCollectionService_DeleteSource(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(chunker.New())

	_, err := rig.ingest.Ingest(ctx, domain.IngestRequest{Text: "first document", Source: "a.txt"})
	require.NoError(t, err)
	_, err = rig.ingest.Ingest(ctx, domain.IngestRequest{Text: "second document", Source: "b.txt"})
	require.NoError(t, err)

	n, err := rig.collection.DeleteSource(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	count, err := rig.collection.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The forgotten document can be ingested again.
	report, err := rig.ingest.Ingest(ctx, domain.IngestRequest{Text: "first document", Source: "a.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
}

func TestCollectionService_DeleteSource_RequiresSource(t *testing.T) {
	rig := newTestRig(nil)

	_, err := rig.collection.DeleteSource(context.Background(), " ")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCollectionService_Sources(t *testing.T) {
	ctx := context.Background()
	rig := newTestRig(chunker.New())

	sources, err := rig.collection.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)

	for _, src := range []string{"b.txt", "a.txt"} {
		_, err := rig.ingest.Ingest(ctx, domain.IngestRequest{Text: "text of " + src, Source: src})
		require.NoError(t, err)
	}

	sources, err = rig.collection.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, sources)
}
