package mcp

import (
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval answers search and context queries.
	Retrieval driving.RetrievalService

	// Ingest adds text to the collection. Optional; without it the
	// ingest_text tool reports ErrIngestDisabled.
	Ingest driving.IngestService

	// Collection describes the collection. Optional.
	Collection driving.CollectionService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	return nil
}
