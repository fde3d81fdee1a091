package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/storagetest"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

func TestVectorStore_Conformance(t *testing.T) {
	storagetest.RunVectorStoreTests(t, func(t *testing.T) driven.VectorStore {
		return NewVectorStore("test")
	})
}

func TestVectorStore_Info(t *testing.T) {
	s := NewVectorStore("docs")

	assert.Equal(t, "docs", s.Collection())
	assert.Equal(t, Location, s.Location())
	assert.NoError(t, s.Close())
}

func TestVectorStore_IsolatesCallerData(t *testing.T) {
	ctx := context.Background()
	s := NewVectorStore("docs")

	e := storagetest.Entry("a", 0, "x", 1, 0)
	require.NoError(t, storagetest.Insert(ctx, s, []domain.IndexEntry{e}))

	// Mutating the inserted values must not change what is stored.
	e.Embedding[0] = 0
	e.Chunk.Metadata[domain.MetaFileType] = "pdf"

	results, err := s.Search(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
	assert.Equal(t, "txt", results[0].Chunk.Metadata[domain.MetaFileType])

	// Nor may mutating results.
	results[0].Chunk.Metadata[domain.MetaFileType] = "docx"
	again, err := s.Search(ctx, []float32{1, 0}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "txt", again[0].Chunk.Metadata[domain.MetaFileType])
}
