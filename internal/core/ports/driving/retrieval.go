package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// RetrievalService answers queries against the collection.
//
// Storage and embedding failures degrade to an empty answer carrying a
// warning. A malformed filter is always returned as domain.ErrInvalidFilter.
type RetrievalService interface {
	// Search returns the nearest chunks to query, best match first.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)

	// GetContext assembles a length-bounded, attributed context for query.
	GetContext(ctx context.Context, query string, opts domain.ContextOptions) (*domain.ContextResult, error)
}
