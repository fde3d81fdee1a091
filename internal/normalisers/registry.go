package normalisers

import (
	"context"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/docx"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/html"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/markdown"
	"github.com/custodia-labs/sercha-rag/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// extensionTypes maps file extensions to MIME types where the platform
// table is missing or ambiguous.
var extensionTypes = map[string]string{
	".txt":      "text/plain",
	".text":     "text/plain",
	".log":      "text/plain",
	".csv":      "text/csv",
	".tsv":      "text/tab-separated-values",
	".json":     "application/json",
	".xml":      "application/xml",
	".yaml":     "text/yaml",
	".yml":      "text/yaml",
	".toml":     "text/toml",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".sh":       "text/x-shellscript",
	".sql":      "text/x-sql",
	".js":       "text/javascript",
	".css":      "text/css",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".xhtml":    "application/xhtml+xml",
	".docx":     docx.MIMEType,
}

// Registry selects an extractor by MIME type.
type Registry struct {
	mu     sync.RWMutex
	byType map[string][]driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byType: make(map[string][]driven.Extractor)}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	return r
}

// Register adds an extractor for each of its MIME types.
// Extractors of equal priority keep registration order.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range e.SupportedMIMETypes() {
		t = strings.ToLower(t)
		list := append(r.byType[t], e)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[t] = list
	}
}

// SupportedMIMETypes returns every registered MIME type, sorted.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.byType))
	for t := range r.byType {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Supports reports whether the upload can be extracted.
func (r *Registry) Supports(upload *domain.Upload) bool {
	_, _, ok := r.lookup(upload)
	return ok
}

// Extract runs the best extractor for the upload.
func (r *Registry) Extract(ctx context.Context, upload *domain.Upload) (*driven.ExtractResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	e, mimeType, ok := r.lookup(upload)
	if !ok {
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrUnsupportedType, upload.Filename, describe(upload.MIMEType))
	}
	logger.Debug("Extracting %s as %s", upload.Filename, mimeType)

	res, err := e.Extract(ctx, upload)
	if err != nil {
		return nil, err
	}
	if res.Metadata == nil {
		res.Metadata = domain.Metadata{}
	}
	res.Metadata["mime_type"] = mimeType
	return res, nil
}

// lookup finds an extractor by declared MIME type, then by extension.
func (r *Registry) lookup(upload *domain.Upload) (driven.Extractor, string, bool) {
	if upload == nil {
		return nil, "", false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range []string{normaliseMIME(upload.MIMEType), TypeByExtension(upload.Filename)} {
		if list := r.byType[t]; t != "" && len(list) > 0 {
			return list[0], t, true
		}
	}
	return nil, "", false
}

// TypeByExtension returns the MIME type for filename's extension, or ""
// when it is unknown.
func TypeByExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return ""
	}
	if t, ok := extensionTypes[ext]; ok {
		return t
	}
	return normaliseMIME(mime.TypeByExtension(ext))
}

// normaliseMIME drops parameters and lower-cases a MIME type.
func normaliseMIME(t string) string {
	if t == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(t); err == nil {
		return mediaType
	}
	return strings.ToLower(strings.TrimSpace(t))
}

func describe(mimeType string) string {
	if mimeType == "" {
		return "unknown type"
	}
	return mimeType
}
