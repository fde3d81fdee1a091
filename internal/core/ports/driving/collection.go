package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// CollectionService administers the collection.
type CollectionService interface {
	// Info describes the collection.
	Info(ctx context.Context) (*domain.CollectionInfo, error)

	// Count returns the number of stored chunks.
	Count(ctx context.Context) (int, error)

	// Sources returns the distinct document names, sorted.
	Sources(ctx context.Context) ([]string, error)

	// Clear removes every chunk. The collection stays usable.
	Clear(ctx context.Context) error

	// DeleteSource removes every chunk of one document.
	DeleteSource(ctx context.Context, source string) (int, error)
}
