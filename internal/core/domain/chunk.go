package domain

import "maps"

// Reserved metadata keys. These are always derived from Chunk fields and
// override caller metadata with the same name.
const (
	MetaSource      = "source"
	MetaChunkIndex  = "chunk_index"
	MetaChunkSize   = "chunk_size"
	MetaContentHash = "content_hash"
	MetaFileType    = "file_type"
	MetaFileSize    = "file_size"
)

// Metadata holds free-form key-value pairs attached to a chunk.
type Metadata map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	maps.Copy(out, m)
	return out
}

// String returns the value for key in canonical string form, and whether
// the key was present.
func (m Metadata) String(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	return FormatValue(v), true
}

// Chunk is a unit of retrievable text.
// Chunks are immutable once stored.
type Chunk struct {
	// ID is assigned by the vector index at insertion.
	ID string

	// Text is the chunk content.
	Text string

	// Source identifies the originating document.
	Source string

	// ChunkIndex is the zero-based position within the source's chunk sequence.
	ChunkIndex int

	// ContentHash is the deduplication fingerprint of Text.
	// Empty until the chunk has passed through the deduplicator.
	ContentHash string

	// Metadata carries caller-supplied attributes such as file_type.
	Metadata Metadata
}

// AllMetadata returns the caller metadata merged with the chunk's
// positional fields. The returned map is a copy.
func (c Chunk) AllMetadata() Metadata {
	m := c.Metadata.Clone()
	m[MetaSource] = c.Source
	m[MetaChunkIndex] = c.ChunkIndex
	if c.ContentHash != "" {
		m[MetaContentHash] = c.ContentHash
	}
	return m
}

// IndexEntry is a chunk stored together with its embedding.
type IndexEntry struct {
	Chunk     Chunk
	Embedding []float32
}
