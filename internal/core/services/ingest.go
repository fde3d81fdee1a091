package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-rag/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// IngestService runs the write path: chunk, deduplicate, embed, store.
type IngestService struct {
	chunker    driven.Chunker
	dedup      *Deduplicator
	index      *VectorIndex
	extractors driven.ExtractorRegistry
}

// NewIngestService creates a new ingest service.
// The extractors parameter is optional; without it uploads are rejected.
func NewIngestService(
	chunker driven.Chunker,
	dedup *Deduplicator,
	index *VectorIndex,
	extractors driven.ExtractorRegistry,
) *IngestService {
	return &IngestService{
		chunker:    chunker,
		dedup:      dedup,
		index:      index,
		extractors: extractors,
	}
}

// Ingest chunks, deduplicates and stores already-extracted text.
func (s *IngestService) Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error) {
	source := strings.TrimSpace(req.Source)
	if source == "" {
		return nil, fmt.Errorf("%w: source is required", domain.ErrInvalidInput)
	}

	logger.Section("Ingest")
	defer logger.Timed("ingest " + source)()

	report := &domain.IngestReport{Source: source}

	chunks := s.chunker.Chunk(req.Text, source, req.Metadata)
	report.Chunks = len(chunks)
	logger.Debug("Chunked %s into %d chunks (size %d, overlap %d)",
		source, len(chunks), s.chunker.ChunkSize(), s.chunker.Overlap())
	if len(chunks) == 0 {
		logger.Info("%s: no text to index", source)
		return report, nil
	}

	res, err := s.dedup.Filter(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("deduplicating %s: %w", source, err)
	}
	report.Skipped = res.Skipped
	report.Empty = res.Empty

	added, err := s.index.Add(ctx, res.Unique)
	if err != nil {
		s.dedup.Release(res.Hashes)
		return nil, fmt.Errorf("indexing %s: %w", source, err)
	}
	report.Added = added
	// Another writer may have stored some of these since the seen set was seeded.
	report.Skipped += len(res.Unique) - added

	logger.Info("%s: %d new chunks stored (skipped %d duplicates of %d)",
		source, report.Added, report.Skipped, report.Chunks)
	return report, nil
}

// IngestUpload extracts text from an upload and ingests it.
// Uploads that yield no text produce an empty report.
func (s *IngestService) IngestUpload(ctx context.Context, upload domain.Upload) (*domain.IngestReport, error) {
	if upload.Filename == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if s.extractors == nil {
		return nil, fmt.Errorf("%w: no extractors configured", domain.ErrUnsupportedType)
	}

	res, err := s.extractors.Extract(ctx, &upload)
	if errors.Is(err, domain.ErrExtractionEmpty) {
		logger.Info("%s: no text extracted", upload.Filename)
		return &domain.IngestReport{Source: upload.Filename}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", upload.Filename, err)
	}

	meta := res.Metadata.Clone()
	if _, ok := meta[domain.MetaFileType]; !ok {
		meta[domain.MetaFileType] = FileType(upload.Filename)
	}
	meta[domain.MetaFileSize] = len(upload.Content)

	return s.Ingest(ctx, domain.IngestRequest{
		Text:     res.Text,
		Source:   upload.Filename,
		Metadata: meta,
	})
}

// FileType returns the lower-case extension of filename without the dot.
func FileType(filename string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
}
