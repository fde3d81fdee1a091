package driving

import (
	"context"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// IngestService adds documents to the collection.
type IngestService interface {
	// Ingest chunks, deduplicates, embeds and stores extracted text.
	// Blank text yields an empty report, not an error.
	Ingest(ctx context.Context, req domain.IngestRequest) (*domain.IngestReport, error)

	// IngestUpload extracts text from raw upload bytes and ingests it.
	// Unsupported types fail with domain.ErrUnsupportedType.
	IngestUpload(ctx context.Context, upload domain.Upload) (*domain.IngestReport, error)
}
