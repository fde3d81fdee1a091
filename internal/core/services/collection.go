package services

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure CollectionService implements the interface.
var _ driving.CollectionService = (*CollectionService)(nil)

// CollectionService administers the collection.
type CollectionService struct {
	index *VectorIndex
	dedup *Deduplicator
}

// NewCollectionService creates a new collection service.
func NewCollectionService(index *VectorIndex, dedup *Deduplicator) *CollectionService {
	return &CollectionService{index: index, dedup: dedup}
}

// Info describes the collection.
func (s *CollectionService) Info(ctx context.Context) (*domain.CollectionInfo, error) {
	count, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting entries: %w", err)
	}
	dim, err := s.index.Dimension(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading dimension: %w", err)
	}
	return &domain.CollectionInfo{
		Name:      s.index.Collection(),
		Count:     count,
		Dimension: dim,
		Model:     s.index.ModelName(),
		Location:  s.index.Location(),
	}, nil
}

// Count returns the number of stored chunks.
func (s *CollectionService) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

// Sources returns the distinct document names in the collection, sorted.
func (s *CollectionService) Sources(ctx context.Context) ([]string, error) {
	set, err := s.index.ScanMetadata(ctx, "source")
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}
	sources := make([]string, 0, len(set))
	for src := range set {
		sources = append(sources, src)
	}
	slices.Sort(sources)
	return sources, nil
}

// Clear removes every chunk and forgets seen content hashes.
func (s *CollectionService) Clear(ctx context.Context) error {
	if err := s.index.Clear(ctx); err != nil {
		return err
	}
	s.dedup.Reset()
	logger.Info("Cleared collection %s", s.index.Collection())
	return nil
}

// DeleteSource removes every chunk of one document so it can be ingested
// again.
func (s *CollectionService) DeleteSource(ctx context.Context, source string) (int, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return 0, fmt.Errorf("%w: source is required", domain.ErrInvalidInput)
	}
	n, err := s.index.DeleteSource(ctx, source)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.dedup.Reset()
	}
	logger.Info("Removed %d chunks of %s", n, source)
	return n, nil
}
