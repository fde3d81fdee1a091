// Package chunker provides a recursive, separator-aware text chunker.
package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order: paragraph break, line break,
// space, and finally single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Processor splits text into chunks of at most chunkSize characters.
// Lengths are counted in runes.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
// An empty string is always appended as the last resort if missing.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) == 0 {
			return
		}
		p.separators = append([]string(nil), seps...)
		if p.separators[len(p.separators)-1] != "" {
			p.separators = append(p.separators, "")
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the target maximum chunk length.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the overlap between neighbouring chunks.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk splits text into chunks attributed to source.
func (p *Processor) Chunk(text, source string, metadata domain.Metadata) []domain.Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	pieces := p.Split(text)
	chunks := make([]domain.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		meta := metadata.Clone()
		meta[domain.MetaChunkSize] = runeLen(piece)
		chunks = append(chunks, domain.Chunk{
			Text:       piece,
			Source:     source,
			ChunkIndex: len(chunks),
			Metadata:   meta,
		})
	}
	return chunks
}

// Split returns the chunk texts for text.
func (p *Processor) Split(text string) []string {
	return p.splitText(text, p.separators)
}

// splitText splits on the first separator present in text, then merges
// small pieces back up to chunkSize. Pieces that are still too large are
// split again with the remaining separators.
func (p *Processor) splitText(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var next []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			next = separators[i+1:]
			break
		}
	}

	var (
		final []string
		good  []string
	)
	for _, s := range splitKeepSeparator(text, separator) {
		if runeLen(s) < p.chunkSize {
			good = append(good, s)
			continue
		}
		if len(good) > 0 {
			final = append(final, p.merge(good)...)
			good = nil
		}
		if len(next) == 0 {
			final = append(final, s)
		} else {
			final = append(final, p.splitText(s, next)...)
		}
	}
	if len(good) > 0 {
		final = append(final, p.merge(good)...)
	}
	return final
}

// merge joins consecutive splits into chunks no longer than chunkSize.
// When a chunk is emitted, splits are dropped from the front until at
// most overlap characters remain to seed the next chunk.
// Separators are already attached to the splits.
func (p *Processor) merge(splits []string) []string {
	var (
		docs    []string
		current []string
		total   int
	)
	for _, s := range splits {
		n := runeLen(s)
		if total+n > p.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
				docs = append(docs, doc)
			}
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= runeLen(current[0])
				current = current[1:]
			}
		}
		current = append(current, s)
		total += n
	}
	if doc := strings.TrimSpace(strings.Join(current, "")); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}

// splitKeepSeparator splits text on sep, attaching each separator to the
// start of the piece that follows it. An empty sep splits into runes.
func splitKeepSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, part := range parts[1:] {
		out = append(out, sep+part)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
