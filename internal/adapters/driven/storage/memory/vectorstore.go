package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/vectormath"
)

// Location is reported as the storage location of in-memory stores.
const Location = ":memory:"

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type storedEntry struct {
	seq   int64
	entry domain.IndexEntry
}

// VectorStore is an in-memory implementation of driven.VectorStore.
// Entries are lost when the process exits.
type VectorStore struct {
	mu         sync.RWMutex
	collection string
	dimension  int
	nextSeq    int64
	entries    []storedEntry
	ids        map[string]struct{}
	hashes     map[string]int
}

// NewVectorStore creates an empty in-memory vector store.
func NewVectorStore(collection string) *VectorStore {
	return &VectorStore{
		collection: collection,
		ids:        make(map[string]struct{}),
		hashes:     make(map[string]int),
	}
}

// Insert stores entries atomically, skipping content hashes already held.
func (s *VectorStore) Insert(_ context.Context, entries []domain.IndexEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dim := s.dimension
	if dim == 0 {
		dim = len(entries[0].Embedding)
	}
	if dim == 0 {
		return 0, fmt.Errorf("inserting entries: %w: empty embedding", domain.ErrDimensionMismatch)
	}

	batch := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if len(e.Embedding) != dim {
			return 0, fmt.Errorf("inserting entries: %w: entry %d has %d values, collection has %d",
				domain.ErrDimensionMismatch, i, len(e.Embedding), dim)
		}
		_, exists := s.ids[e.Chunk.ID]
		_, dup := batch[e.Chunk.ID]
		if exists || dup {
			return 0, fmt.Errorf("inserting entries: duplicate id %s", e.Chunk.ID)
		}
		batch[e.Chunk.ID] = struct{}{}
	}

	s.dimension = dim
	stored := 0
	for _, e := range entries {
		if h := e.Chunk.ContentHash; h != "" {
			if s.hashes[h] > 0 {
				continue
			}
			s.hashes[h]++
		}
		s.nextSeq++
		s.entries = append(s.entries, storedEntry{seq: s.nextSeq, entry: cloneEntry(e)})
		s.ids[e.Chunk.ID] = struct{}{}
		stored++
	}
	return stored, nil
}

// Search scores every matching entry against query.
func (s *VectorStore) Search(_ context.Context, query []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if k <= 0 || len(s.entries) == 0 {
		return []domain.SearchResult{}, nil
	}
	if len(query) != s.dimension {
		return nil, fmt.Errorf("searching: %w: query has %d values, collection has %d",
			domain.ErrDimensionMismatch, len(query), s.dimension)
	}

	candidates := make([]vectormath.Candidate[domain.Chunk], 0, len(s.entries))
	for _, se := range s.entries {
		if !filter.Match(se.entry.Chunk.AllMetadata()) {
			continue
		}
		candidates = append(candidates, vectormath.Candidate[domain.Chunk]{
			Item:     se.entry.Chunk,
			Seq:      se.seq,
			Distance: vectormath.CosineDistance(query, se.entry.Embedding),
		})
	}

	top := vectormath.TopK(candidates, k)
	results := make([]domain.SearchResult, len(top))
	for i, c := range top {
		chunk := c.Item
		chunk.Metadata = chunk.Metadata.Clone()
		results[i] = domain.SearchResult{Chunk: chunk, Distance: c.Distance}
	}
	return results, nil
}

// Count returns the number of entries.
func (s *VectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Delete removes entries by ID.
func (s *VectorStore) Delete(_ context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	remove := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeWhere(func(e domain.IndexEntry) bool {
		_, ok := remove[e.Chunk.ID]
		return ok
	})
	return nil
}

// DeleteBySource removes all entries of one source.
func (s *VectorStore) DeleteBySource(_ context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeWhere(func(e domain.IndexEntry) bool {
		return e.Chunk.Source == source
	}), nil
}

// removeWhere deletes matching entries (caller must hold lock).
func (s *VectorStore) removeWhere(match func(domain.IndexEntry) bool) int {
	before := len(s.entries)
	s.entries = slices.DeleteFunc(s.entries, func(se storedEntry) bool {
		if match(se.entry) {
			delete(s.ids, se.entry.Chunk.ID)
			if h := se.entry.Chunk.ContentHash; h != "" {
				if s.hashes[h]--; s.hashes[h] <= 0 {
					delete(s.hashes, h)
				}
			}
			return true
		}
		return false
	})
	return before - len(s.entries)
}

// Clear removes all entries and resets the dimension.
func (s *VectorStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.ids = make(map[string]struct{})
	s.hashes = make(map[string]int)
	s.dimension = 0
	return nil
}

// ScanMetadata returns the distinct non-empty values of field.
func (s *VectorStore) ScanMetadata(_ context.Context, field string) (map[string]struct{}, error) {
	if !domain.ValidField(field) {
		return nil, fmt.Errorf("%w: bad field name %q", domain.ErrInvalidFilter, field)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[string]struct{})
	for _, se := range s.entries {
		if v, ok := se.entry.Chunk.AllMetadata().String(field); ok && v != "" {
			values[v] = struct{}{}
		}
	}
	return values, nil
}

// Dimension returns the collection's vector length, or 0 when empty.
func (s *VectorStore) Dimension(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimension, nil
}

// Collection returns the collection name.
func (s *VectorStore) Collection() string {
	return s.collection
}

// Location returns ":memory:".
func (s *VectorStore) Location() string {
	return Location
}

// Close releases resources.
func (s *VectorStore) Close() error {
	return nil
}

func cloneEntry(e domain.IndexEntry) domain.IndexEntry {
	e.Chunk.Metadata = e.Chunk.Metadata.Clone()
	e.Embedding = slices.Clone(e.Embedding)
	return e
}
