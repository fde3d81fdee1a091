package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure RetrievalService implements the interface.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// BlockSeparator joins context blocks.
const BlockSeparator = "\n---\n"

// RetrievalService runs the read path: embed the query, search, assemble.
type RetrievalService struct {
	index    *VectorIndex
	defaults domain.ContextSettings
}

// NewRetrievalService creates a new retrieval service.
// Zero defaults fall back to domain.DefaultK and domain.DefaultMaxContextLength.
func NewRetrievalService(index *VectorIndex, defaults domain.ContextSettings) *RetrievalService {
	if defaults.K <= 0 {
		defaults.K = domain.DefaultK
	}
	if defaults.MaxLength <= 0 {
		defaults.MaxLength = domain.DefaultMaxContextLength
	}
	return &RetrievalService{index: index, defaults: defaults}
}

// Search returns the chunks nearest to query.
// Storage and embedding failures yield no results and a warning.
func (s *RetrievalService) Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error) {
	logger.Section("Search")
	logger.Debug("Query: %q", query)

	if err := opts.Filter.Validate(); err != nil {
		return nil, err
	}

	resp := &domain.SearchResponse{Results: []domain.SearchResult{}}

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return resp, nil
	}

	k := opts.K
	if k <= 0 {
		k = s.defaults.K
	}

	results, err := s.index.Query(ctx, query, k, opts.Filter)
	if errors.Is(err, domain.ErrInvalidFilter) {
		return nil, err
	}
	if err != nil {
		logger.Warn("Search degraded: %v", err)
		resp.Warnings = append(resp.Warnings, fmt.Sprintf("knowledge base unavailable: %v", err))
		return resp, nil
	}

	logger.Debug("Found %d results", len(results))
	resp.Results = results
	return resp, nil
}

// GetContext assembles an attributed context of bounded length for query.
func (s *RetrievalService) GetContext(ctx context.Context, query string, opts domain.ContextOptions) (*domain.ContextResult, error) {
	maxLength := opts.MaxLength
	if maxLength <= 0 {
		maxLength = s.defaults.MaxLength
	}

	resp, err := s.Search(ctx, query, domain.SearchOptions{K: opts.K, Filter: opts.Filter})
	if err != nil {
		return nil, err
	}

	result := AssembleContext(resp.Results, maxLength)
	result.Warnings = resp.Warnings
	logger.Debug("Assembled context of %d characters from %d sources",
		utf8.RuneCountInString(result.Context), len(result.Sources))
	return result, nil
}

// AssembleContext formats ranked results into labelled blocks until the
// next block would exceed maxLength. The first block is always kept; if it
// alone exceeds maxLength it is cut to maxLength characters plus the
// truncation marker. No results yield domain.NoContextSentinel.
func AssembleContext(results []domain.SearchResult, maxLength int) *domain.ContextResult {
	out := &domain.ContextResult{Sources: []domain.ContextSource{}}
	if len(results) == 0 {
		out.Context = domain.NoContextSentinel
		return out
	}

	sepLen := utf8.RuneCountInString(BlockSeparator)
	var b strings.Builder
	length := 0

	for i, r := range results {
		block := FormatBlock(r.Chunk)
		add := utf8.RuneCountInString(block)
		if i > 0 {
			add += sepLen
			if length+add > maxLength {
				out.Truncated = true
				break
			}
			b.WriteString(BlockSeparator)
		}
		b.WriteString(block)
		length += add

		out.Sources = append(out.Sources, domain.ContextSource{
			Source:     r.Chunk.Source,
			ChunkIndex: r.Chunk.ChunkIndex,
			Distance:   r.Distance,
			Relevance:  r.Relevance(),
			Preview:    domain.Preview(r.Chunk.Text),
		})
	}

	out.Context = b.String()
	if length > maxLength {
		out.Context = string([]rune(out.Context)[:maxLength]) + domain.TruncationMarker
		out.Truncated = true
	}
	return out
}

// FormatBlock renders one chunk with its source label.
func FormatBlock(c domain.Chunk) string {
	return fmt.Sprintf("[Document: %s, Chunk %d]\n%s\n", c.Source, c.ChunkIndex, c.Text)
}
