package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// VectorIndex embeds chunks and stores them in one collection.
// It is constructed once at the composition root and shared by the
// ingest, retrieval and collection services.
type VectorIndex struct {
	store     driven.VectorStore
	embedder  driven.EmbeddingService
	batchSize int
	newID     func() string
}

// VectorIndexOption configures a VectorIndex.
type VectorIndexOption func(*VectorIndex)

// WithBatchSize sets how many texts are embedded per request.
func WithBatchSize(n int) VectorIndexOption {
	return func(v *VectorIndex) {
		if n > 0 {
			v.batchSize = n
		}
	}
}

// WithIDGenerator replaces the random entry ID generator.
func WithIDGenerator(fn func() string) VectorIndexOption {
	return func(v *VectorIndex) {
		if fn != nil {
			v.newID = fn
		}
	}
}

// NewVectorIndex creates a vector index over store using embedder.
func NewVectorIndex(store driven.VectorStore, embedder driven.EmbeddingService, opts ...VectorIndexOption) *VectorIndex {
	v := &VectorIndex{
		store:     store,
		embedder:  embedder,
		batchSize: domain.DefaultBatchSize,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Add embeds chunks and stores them with fresh IDs.
// Either every new chunk is stored or none is. Chunks whose content hash
// the store already holds are skipped. Returns the number stored.
func (v *VectorIndex) Add(ctx context.Context, chunks []domain.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := v.embed(ctx, texts)
	if err != nil {
		return 0, err
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		c.ID = v.newID()
		entries[i] = domain.IndexEntry{Chunk: c, Embedding: vectors[i]}
	}

	stored, err := v.store.Insert(ctx, entries)
	if err != nil {
		return 0, fmt.Errorf("storing %d entries: %w", len(entries), err)
	}

	if skipped := len(entries) - stored; skipped > 0 {
		logger.Debug("Store already held %d of %d entries", skipped, len(entries))
	}
	logger.Debug("Stored %d entries in collection %s", stored, v.store.Collection())
	return stored, nil
}

// embed embeds texts in batches and checks every vector's length.
func (v *VectorIndex) embed(ctx context.Context, texts []string) ([][]float32, error) {
	want := v.embedder.Dimensions()
	vectors := make([][]float32, 0, len(texts))

	for start := 0; start < len(texts); start += v.batchSize {
		end := min(start+v.batchSize, len(texts))
		batch, err := v.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("embedding chunks %d-%d: got %d vectors", start, end-1, len(batch))
		}
		for i, vec := range batch {
			if want > 0 && len(vec) != want {
				return nil, fmt.Errorf("embedding chunk %d: %w: got %d values, model %s has %d",
					start+i, domain.ErrDimensionMismatch, len(vec), v.embedder.ModelName(), want)
			}
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// Query returns at most k chunks nearest to text, best match first.
// An empty collection yields no results without calling the embedder.
func (v *VectorIndex) Query(ctx context.Context, text string, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return []domain.SearchResult{}, nil
	}

	dim, err := v.store.Dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return []domain.SearchResult{}, nil
	}

	vec, err := v.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := v.store.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", v.store.Collection(), err)
	}
	return results, nil
}

// Count returns the number of stored entries.
func (v *VectorIndex) Count(ctx context.Context) (int, error) {
	return v.store.Count(ctx)
}

// Clear removes all entries. The collection stays usable.
func (v *VectorIndex) Clear(ctx context.Context) error {
	if err := v.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing collection %s: %w", v.store.Collection(), err)
	}
	return nil
}

// DeleteSource removes all entries of one source.
func (v *VectorIndex) DeleteSource(ctx context.Context, source string) (int, error) {
	n, err := v.store.DeleteBySource(ctx, source)
	if err != nil {
		return 0, fmt.Errorf("deleting source %s: %w", source, err)
	}
	return n, nil
}

// ScanMetadata returns the distinct values of one metadata field.
func (v *VectorIndex) ScanMetadata(ctx context.Context, field string) (map[string]struct{}, error) {
	return v.store.ScanMetadata(ctx, field)
}

// Dimension returns the collection's vector length, or 0 when empty.
func (v *VectorIndex) Dimension(ctx context.Context) (int, error) {
	return v.store.Dimension(ctx)
}

// ModelName returns the embedding model name.
func (v *VectorIndex) ModelName() string {
	return v.embedder.ModelName()
}

// Collection returns the collection name.
func (v *VectorIndex) Collection() string {
	return v.store.Collection()
}

// Location returns where entries are kept.
func (v *VectorIndex) Location() string {
	return v.store.Location()
}
