package driven

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Extractor turns an uploaded document of specific MIME types into text.
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors return 50-89, fallbacks 1-9.
	Priority() int

	// Extract reads the upload's text. Blank output is returned as
	// domain.ErrExtractionEmpty.
	Extract(ctx context.Context, upload *domain.Upload) (*ExtractResult, error)
}

// ExtractResult is the output of extraction.
type ExtractResult struct {
	// Text is the document body.
	Text string

	// Metadata holds format details such as file_type and title.
	Metadata domain.Metadata
}

// ExtractorRegistry dispatches uploads to the best matching extractor.
type ExtractorRegistry interface {
	// Extract selects an extractor by MIME type, falling back to the
	// filename extension. Unknown types fail with domain.ErrUnsupportedType.
	Extract(ctx context.Context, upload *domain.Upload) (*ExtractResult, error)

	// Register adds an extractor.
	Register(extractor Extractor)

	// SupportedMIMETypes returns every MIME type that can be extracted.
	SupportedMIMETypes() []string

	// Supports reports whether the upload can be extracted.
	Supports(upload *domain.Upload) bool
}
