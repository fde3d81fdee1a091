// Package plaintext extracts text from plain text uploads such as .txt,
// .csv and source files.
package plaintext

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Encodings reported in the "encoding" metadata field.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

// Extractor handles plain text documents.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"text/plain",
		"text/csv",
		"text/tab-separated-values",
		"text/x-go",
		"text/x-python",
		"text/x-shellscript",
		"text/x-sql",
		"text/yaml",
		"text/toml",
		"text/javascript",
		"text/css",
		"application/json",
		"application/xml",
		"text/xml",
	}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// Extract decodes the upload as UTF-8, falling back to Latin-1 when the
// bytes are not valid UTF-8.
func (e *Extractor) Extract(_ context.Context, upload *domain.Upload) (*driven.ExtractResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	text, encoding, err := Decode(upload.Content)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", upload.Filename, err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtractionEmpty, upload.Filename)
	}

	return &driven.ExtractResult{
		Text: text,
		Metadata: domain.Metadata{
			"title":    Title(upload.Filename),
			"encoding": encoding,
		},
	}, nil
}

// Decode returns content as a string and the encoding it was read with.
// A leading UTF-8 byte order mark is dropped.
func Decode(content []byte) (string, string, error) {
	if utf8.Valid(content) {
		return strings.TrimPrefix(string(content), "\uFEFF"), EncodingUTF8, nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(content)
	if err != nil {
		return "", "", err
	}
	return string(decoded), EncodingLatin1, nil
}

// Title derives a human-readable title from a filename.
func Title(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
