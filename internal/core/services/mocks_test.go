package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/sercha-rag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockEmbedder wraps the hashing model with injectable failures.
type mockEmbedder struct {
	*hashing.EmbeddingService

	mu         sync.Mutex
	embedErr   error
	batchErr   error
	dims       int // reported dimensions override
	short      int // when > 0, vectors are cut to this length
	embedCalls int
	batches    []int
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{EmbeddingService: hashing.NewEmbeddingService(256)}
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	m.embedCalls++
	m.mu.Unlock()
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return m.EmbeddingService.Embed(ctx, text)
}

func (m *mockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.batches = append(m.batches, len(texts))
	m.mu.Unlock()
	if m.batchErr != nil {
		return nil, m.batchErr
	}
	vecs, err := m.EmbeddingService.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}
	if m.short > 0 {
		for i := range vecs {
			vecs[i] = vecs[i][:m.short]
		}
	}
	return vecs, nil
}

func (m *mockEmbedder) Dimensions() int {
	if m.dims > 0 {
		return m.dims
	}
	return m.EmbeddingService.Dimensions()
}

// failingStore wraps the in-memory store with injectable failures.
type failingStore struct {
	*memory.VectorStore

	insertErr error
	searchErr error
	scanErr   error
	scans     int
}

func newFailingStore() *failingStore {
	return &failingStore{VectorStore: memory.NewVectorStore("test")}
}

func (f *failingStore) Insert(ctx context.Context, entries []domain.IndexEntry) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	return f.VectorStore.Insert(ctx, entries)
}

func (f *failingStore) Search(ctx context.Context, q []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.VectorStore.Search(ctx, q, k, filter)
}

func (f *failingStore) ScanMetadata(ctx context.Context, field string) (map[string]struct{}, error) {
	f.scans++
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.VectorStore.ScanMetadata(ctx, field)
}

// mockRegistry implements driven.ExtractorRegistry for testing.
type mockRegistry struct {
	result *driven.ExtractResult
	err    error
	got    *domain.Upload
}

func (m *mockRegistry) Extract(_ context.Context, upload *domain.Upload) (*driven.ExtractResult, error) {
	m.got = upload
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

func (m *mockRegistry) Register(_ driven.Extractor) {}

func (m *mockRegistry) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

func (m *mockRegistry) Supports(_ *domain.Upload) bool {
	return m.err == nil
}

// testRig wires the services over one in-memory collection.
type testRig struct {
	store      *failingStore
	embedder   *mockEmbedder
	index      *VectorIndex
	dedup      *Deduplicator
	ingest     *IngestService
	retrieval  *RetrievalService
	collection *CollectionService
}

func newTestRig(chunker driven.Chunker) *testRig {
	r := &testRig{
		store:    newFailingStore(),
		embedder: newMockEmbedder(),
	}
	r.index = NewVectorIndex(r.store, r.embedder)
	r.dedup = NewDeduplicator(r.index)
	r.ingest = NewIngestService(chunker, r.dedup, r.index, &mockRegistry{})
	r.retrieval = NewRetrievalService(r.index, domain.ContextSettings{})
	r.collection = NewCollectionService(r.index, r.dedup)
	return r
}

// chunksOf builds chunks of one source from texts.
func chunksOf(source string, texts ...string) []domain.Chunk {
	chunks := make([]domain.Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = domain.Chunk{
			Text:       t,
			Source:     source,
			ChunkIndex: i,
			Metadata:   domain.Metadata{domain.MetaChunkSize: len(t)},
		}
	}
	return chunks
}
