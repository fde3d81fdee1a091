package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// Chunker splits document text into overlapping chunks.
// Output is deterministic for the same text and configuration.
type Chunker interface {
	// Chunk splits text into chunks attributed to source. Each chunk's
	// metadata is a copy of metadata plus chunk_size, and its ChunkIndex
	// is its position in the output. Blank text yields no chunks.
	Chunk(text, source string, metadata domain.Metadata) []domain.Chunk

	// ChunkSize returns the target maximum chunk length in characters.
	ChunkSize() int

	// Overlap returns the number of characters shared by neighbours.
	Overlap() int
}
