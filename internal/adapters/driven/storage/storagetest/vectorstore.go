// Package storagetest provides a conformance suite for driven.VectorStore
// implementations.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Factory returns an empty vector store for one test.
type Factory func(t *testing.T) driven.VectorStore

// Entry builds an index entry with a deterministic ID.
func Entry(source string, idx int, text string, vec ...float32) domain.IndexEntry {
	return domain.IndexEntry{
		Chunk: domain.Chunk{
			ID:          fmt.Sprintf("%s-%d", source, idx),
			Text:        text,
			Source:      source,
			ChunkIndex:  idx,
			ContentHash: "hash-" + text,
			Metadata:    domain.Metadata{domain.MetaChunkSize: len(text), domain.MetaFileType: "txt"},
		},
		Embedding: vec,
	}
}

// Insert stores entries and drops the stored count.
func Insert(ctx context.Context, s driven.VectorStore, entries []domain.IndexEntry) error {
	_, err := s.Insert(ctx, entries)
	return err
}

// RunVectorStoreTests exercises the behaviour every vector store shares.
func RunVectorStoreTests(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("empty collection", func(t *testing.T) {
		s := newStore(t)

		results, err := s.Search(ctx, []float32{1, 0}, 3, nil)
		require.NoError(t, err)
		assert.Empty(t, results)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		dim, err := s.Dimension(ctx)
		require.NoError(t, err)
		assert.Zero(t, dim)
	})

	t.Run("insert empty batch is a no-op", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, nil))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("search ranks by distance", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{
			Entry("doc_a.txt", 0, "east", 1, 0, 0),
			Entry("doc_a.txt", 1, "north", 0, 1, 0),
			Entry("doc_a.txt", 2, "north-east", 1, 1, 0),
		}))

		results, err := s.Search(ctx, []float32{0, 1, 0}, 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "north", results[0].Chunk.Text)
		assert.InDelta(t, 0, results[0].Distance, 1e-6)
		assert.Equal(t, "north-east", results[1].Chunk.Text)
		assert.Greater(t, results[1].Distance, results[0].Distance)

		top := results[0].Chunk
		assert.Equal(t, "doc_a.txt-1", top.ID)
		assert.Equal(t, "doc_a.txt", top.Source)
		assert.Equal(t, 1, top.ChunkIndex)
		assert.Equal(t, "hash-north", top.ContentHash)
		assert.Equal(t, 5, top.Metadata[domain.MetaChunkSize])
		assert.Equal(t, "txt", top.Metadata[domain.MetaFileType])
	})

	t.Run("ties keep insertion order", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "first", 1, 0)}))
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{
			Entry("a", 1, "second", 2, 0),
			Entry("a", 2, "third", 3, 0),
		}))

		results, err := s.Search(ctx, []float32{1, 0}, 3, nil)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, "first", results[0].Chunk.Text)
		assert.Equal(t, "second", results[1].Chunk.Text)
		assert.Equal(t, "third", results[2].Chunk.Text)
	})

	t.Run("k bounds results", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{
			Entry("a", 0, "x", 1, 0),
			Entry("a", 1, "y", 0, 1),
		}))

		results, err := s.Search(ctx, []float32{1, 0}, 10, nil)
		require.NoError(t, err)
		assert.Len(t, results, 2)

		results, err = s.Search(ctx, []float32{1, 0}, 0, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("dimension is fixed by first insert", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "x", 1, 0, 0)}))

		dim, err := s.Dimension(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, dim)

		err = Insert(ctx, s, []domain.IndexEntry{
			Entry("b", 0, "ok", 1, 0, 0),
			Entry("b", 1, "bad", 1, 0),
		})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		err = Insert(ctx, s, []domain.IndexEntry{Entry("c", 0, "short", 1, 0)})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "failed batches must store nothing")

		_, err = s.Search(ctx, []float32{1, 0}, 1, nil)
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	})

	t.Run("duplicate id fails whole batch", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "x", 1, 0)}))

		err := Insert(ctx, s, []domain.IndexEntry{
			Entry("a", 1, "y", 0, 1),
			Entry("a", 0, "x again", 1, 1),
		})
		require.Error(t, err)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("skips stored content hashes", func(t *testing.T) {
		s := newStore(t)
		stored, err := s.Insert(ctx, []domain.IndexEntry{Entry("a", 0, "x", 1, 0)})
		require.NoError(t, err)
		assert.Equal(t, 1, stored)

		stored, err = s.Insert(ctx, []domain.IndexEntry{
			Entry("b", 0, "x", 1, 0),
			Entry("b", 1, "y", 0, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, stored)

		stored, err = s.Insert(ctx, []domain.IndexEntry{
			Entry("c", 0, "z", 1, 1),
			Entry("c", 1, "z", 1, 1),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, stored, "repeat within one batch")

		unhashed := func(id string) domain.IndexEntry {
			e := Entry("raw", 0, "same", 1, 0)
			e.Chunk.ID = id
			e.Chunk.ContentHash = ""
			return e
		}
		stored, err = s.Insert(ctx, []domain.IndexEntry{unhashed("raw-0"), unhashed("raw-1")})
		require.NoError(t, err)
		assert.Equal(t, 2, stored, "entries without a hash are always stored")

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)

		hashes, err := s.ScanMetadata(ctx, domain.MetaContentHash)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"hash-x": {}, "hash-y": {}, "hash-z": {}}, hashes)
	})

	t.Run("stored hash is released by delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "x", 1, 0)}))
		_, err := s.DeleteBySource(ctx, "a")
		require.NoError(t, err)

		stored, err := s.Insert(ctx, []domain.IndexEntry{Entry("b", 0, "x", 1, 0)})
		require.NoError(t, err)
		assert.Equal(t, 1, stored)
	})

	t.Run("concurrent inserts of one hash keep a single copy", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("seed", 0, "seed", 1, 0)}))

		const writers = 16
		var wg sync.WaitGroup
		counts := make(chan int, writers)
		errs := make(chan error, writers*2)
		for i := 0; i < writers; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				stored, err := s.Insert(ctx, []domain.IndexEntry{Entry(fmt.Sprintf("w%d", i), 0, "shared", 0, 1)})
				errs <- err
				counts <- stored
			}()
			go func() {
				defer wg.Done()
				_, err := s.ScanMetadata(ctx, domain.MetaContentHash)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		close(counts)
		for err := range errs {
			assert.NoError(t, err)
		}
		total := 0
		for c := range counts {
			total += c
		}
		assert.Equal(t, 1, total)

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("metadata filter", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{
			Entry("doc_a.txt", 0, "a0", 1, 0),
			Entry("doc_b.txt", 0, "b0", 1, 0.1),
			Entry("doc_a.txt", 1, "a1", 0, 1),
		}))

		f, err := domain.ParseFilter("source=doc_a.txt")
		require.NoError(t, err)
		results, err := s.Search(ctx, []float32{1, 0}, 5, f)
		require.NoError(t, err)
		require.Len(t, results, 2)
		for _, r := range results {
			assert.Equal(t, "doc_a.txt", r.Chunk.Source)
		}

		f, err = domain.ParseFilter("chunk_index=1")
		require.NoError(t, err)
		results, err = s.Search(ctx, []float32{1, 0}, 5, f)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "a1", results[0].Chunk.Text)

		f, err = domain.ParseFilter("file_type~=pdf|docx")
		require.NoError(t, err)
		results, err = s.Search(ctx, []float32{1, 0}, 5, f)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("invalid filter is rejected", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "x", 1, 0)}))

		bad := &domain.Filter{Conditions: []domain.Condition{{Field: "source", Op: "like", Values: []string{"a"}}}}
		_, err := s.Search(ctx, []float32{1, 0}, 1, bad)
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	})

	t.Run("scan metadata", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{
			Entry("doc_a.txt", 0, "one", 1, 0),
			Entry("doc_a.txt", 1, "two", 0, 1),
			Entry("doc_b.txt", 0, "three", 1, 1),
		}))

		hashes, err := s.ScanMetadata(ctx, domain.MetaContentHash)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"hash-one": {}, "hash-two": {}, "hash-three": {}}, hashes)

		sources, err := s.ScanMetadata(ctx, domain.MetaSource)
		require.NoError(t, err)
		assert.Len(t, sources, 2)

		types, err := s.ScanMetadata(ctx, domain.MetaFileType)
		require.NoError(t, err)
		assert.Equal(t, map[string]struct{}{"txt": {}}, types)

		sizes, err := s.ScanMetadata(ctx, domain.MetaChunkSize)
		require.NoError(t, err)
		assert.Contains(t, sizes, "3")
		assert.Contains(t, sizes, "5")

		missing, err := s.ScanMetadata(ctx, "author")
		require.NoError(t, err)
		assert.Empty(t, missing)

		_, err = s.ScanMetadata(ctx, "bad field")
		assert.ErrorIs(t, err, domain.ErrInvalidFilter)
	})

	t.Run("delete by id and source", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{
			Entry("doc_a.txt", 0, "a0", 1, 0),
			Entry("doc_a.txt", 1, "a1", 0, 1),
			Entry("doc_b.txt", 0, "b0", 1, 1),
		}))

		require.NoError(t, s.Delete(ctx, []string{"doc_a.txt-0", "unknown"}))
		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		removed, err := s.DeleteBySource(ctx, "doc_a.txt")
		require.NoError(t, err)
		assert.Equal(t, 1, removed)

		results, err := s.Search(ctx, []float32{1, 0}, 5, nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "b0", results[0].Chunk.Text)
	})

	t.Run("clear keeps collection usable", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "x", 1, 0, 0)}))
		require.NoError(t, s.Clear(ctx))

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)

		results, err := s.Search(ctx, []float32{1, 0, 0}, 3, nil)
		require.NoError(t, err)
		assert.Empty(t, results)

		hashes, err := s.ScanMetadata(ctx, domain.MetaContentHash)
		require.NoError(t, err)
		assert.Empty(t, hashes)

		// Dimension is reset, so a different model may be used afterwards.
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("a", 0, "x", 1, 0)}))
		dim, err := s.Dimension(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, dim)
	})

	t.Run("concurrent inserts and searches", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, Insert(ctx, s, []domain.IndexEntry{Entry("seed", 0, "seed", 1, 0)}))

		var wg sync.WaitGroup
		errs := make(chan error, 40)
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				errs <- Insert(ctx, s, []domain.IndexEntry{Entry(fmt.Sprintf("w%d", i), 0, fmt.Sprintf("t%d", i), 0, 1)})
			}()
			go func() {
				defer wg.Done()
				_, err := s.Search(ctx, []float32{1, 0}, 3, nil)
				errs <- err
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		n, err := s.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 21, n)
	})
}
