package domain

import "unicode/utf8"

// Retrieval defaults.
const (
	// DefaultK is the number of results returned when none is requested.
	DefaultK = 3

	// DefaultMaxContextLength is the context budget in characters.
	DefaultMaxContextLength = 2000

	// PreviewLength is the number of characters kept in a source preview.
	PreviewLength = 200

	// TruncationMarker is appended to text cut to fit a budget.
	TruncationMarker = "..."

	// NoContextSentinel is returned as context when nothing relevant exists.
	NoContextSentinel = "No relevant documents found."
)

// SearchOptions configures a nearest-neighbour query.
type SearchOptions struct {
	// K is the maximum number of results. Zero means DefaultK.
	K int

	// Filter restricts results by metadata. Nil matches everything.
	Filter *Filter
}

// SearchResult represents a single nearest-neighbour hit.
type SearchResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk

	// Distance is in [0, 2]; smaller is more similar.
	Distance float64
}

// Relevance maps distance onto [0, 1] where 1 is an exact match.
func (r SearchResult) Relevance() float64 {
	rel := 1 - r.Distance
	switch {
	case rel < 0:
		return 0
	case rel > 1:
		return 1
	}
	return rel
}

// SearchResponse is the outcome of a query.
// Warnings are set when the query degraded instead of failing.
type SearchResponse struct {
	Results  []SearchResult
	Warnings []string
}

// ContextOptions configures context assembly.
type ContextOptions struct {
	// K is the number of candidate results. Zero means DefaultK.
	K int

	// MaxLength is the context budget in characters. Zero means
	// DefaultMaxContextLength.
	MaxLength int

	// Filter restricts candidates by metadata.
	Filter *Filter
}

// ContextSource is a citation for one block included in the context.
type ContextSource struct {
	Source     string  `json:"source"`
	ChunkIndex int     `json:"chunk_index"`
	Distance   float64 `json:"distance"`
	Relevance  float64 `json:"relevance"`
	Preview    string  `json:"preview"`
}

// ContextResult is assembled context with its citations, in the same order.
type ContextResult struct {
	Context   string          `json:"context"`
	Sources   []ContextSource `json:"sources"`
	Truncated bool            `json:"truncated"`
	Warnings  []string        `json:"warnings,omitempty"`
}

// HasContext reports whether any document contributed to the context.
func (r ContextResult) HasContext() bool {
	return len(r.Sources) > 0
}

// Preview returns the first PreviewLength characters of text, with the
// truncation marker when text was cut.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	runes := []rune(text)
	return string(runes[:PreviewLength]) + TruncationMarker
}
