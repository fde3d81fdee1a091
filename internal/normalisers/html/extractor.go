// Package html extracts readable text from HTML uploads, dropping scripts,
// styles and markup and decoding entities.
package html

import (
	"context"
	"fmt"
	"html"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles HTML documents.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract returns the visible text of the page, one block per line.
func (e *Extractor) Extract(_ context.Context, upload *domain.Upload) (*driven.ExtractResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	page := string(upload.Content)
	text := Text(page)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtractionEmpty, upload.Filename)
	}

	return &driven.ExtractResult{
		Text: text,
		Metadata: domain.Metadata{
			"title":  title(page, upload.Filename),
			"format": "html",
		},
	}, nil
}

var (
	titleTag = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

	// invisible elements are removed together with their content.
	invisible = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}

	blockBoundary = regexp.MustCompile(`(?i)</?(p|div|br|hr|h[1-6]|li|ul|ol|tr|td|th|blockquote|pre|table|section|article|header|footer|nav)\b[^>]*>`)
	anyTag        = regexp.MustCompile(`<[^>]+>`)
	spaceRun      = regexp.MustCompile(`[ \t\x{00A0}]+`)
)

// Text converts an HTML page into plain text.
func Text(page string) string {
	for _, re := range invisible {
		page = re.ReplaceAllString(page, "")
	}
	page = blockBoundary.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = html.UnescapeString(page)
	page = spaceRun.ReplaceAllString(page, " ")

	var lines []string
	for _, line := range strings.Split(page, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// title returns the document's <title> or a name from the filename.
func title(page, filename string) string {
	if m := titleTag.FindStringSubmatch(page); m != nil {
		if t := strings.TrimSpace(html.UnescapeString(m[1])); t != "" {
			return t
		}
	}
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
