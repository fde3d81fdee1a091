package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// VectorStore persists index entries for one collection and answers
// nearest-neighbour queries over them.
//
// Implementations must be safe for concurrent use. Persistent
// implementations rely on the storage engine's locking so several
// processes may share one data directory.
type VectorStore interface {
	// Insert stores entries atomically: either all are committed or none.
	// The first insert into an empty collection fixes its dimension.
	// Entries of any other length fail with domain.ErrDimensionMismatch.
	// An entry whose non-empty content hash is already stored, or repeats
	// an earlier entry of the batch, is skipped. The check runs under the
	// same lock as the write. Returns the number of entries stored.
	Insert(ctx context.Context, entries []domain.IndexEntry) (int, error)

	// Search returns at most k entries ordered by ascending cosine distance.
	// Equal distances keep insertion order. An empty collection yields an
	// empty slice.
	Search(ctx context.Context, query []float32, k int, filter *domain.Filter) ([]domain.SearchResult, error)

	// Count returns the number of live entries.
	Count(ctx context.Context) (int, error)

	// Delete removes entries by ID. Unknown IDs are ignored.
	Delete(ctx context.Context, ids []string) error

	// DeleteBySource removes every entry of one source and returns how
	// many were removed.
	DeleteBySource(ctx context.Context, source string) (int, error)

	// Clear removes all entries. The collection stays usable and its
	// dimension is reset.
	Clear(ctx context.Context) error

	// ScanMetadata returns the distinct canonical string values of one
	// metadata field across all entries.
	ScanMetadata(ctx context.Context, field string) (map[string]struct{}, error)

	// Dimension returns the collection's vector length, or 0 when empty.
	Dimension(ctx context.Context) (int, error)

	// Collection returns the collection name.
	Collection() string

	// Location describes where entries are kept (a file path or "memory").
	Location() string

	// Close releases resources.
	Close() error
}
