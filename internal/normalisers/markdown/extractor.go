// Package markdown extracts text from Markdown uploads. YAML front matter
// is lifted into metadata and formatting markers are removed.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Markdown documents.
type Extractor struct{}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// Extract strips Markdown syntax and returns the readable text.
// Scalar front matter fields become metadata; a "title" field wins over
// the first level-one heading.
func (e *Extractor) Extract(_ context.Context, upload *domain.Upload) (*driven.ExtractResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	meta := domain.Metadata{}
	body, err := splitFrontMatter(upload.Content, meta)
	if err != nil {
		return nil, fmt.Errorf("%w: front matter in %s: %w", domain.ErrInvalidInput, upload.Filename, err)
	}

	if _, ok := meta["title"]; !ok {
		meta["title"] = title(body, upload.Filename)
	}
	meta["format"] = "markdown"

	text := Strip(body)
	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtractionEmpty, upload.Filename)
	}
	return &driven.ExtractResult{Text: text, Metadata: meta}, nil
}

var frontMatterFence = []byte("---")

// splitFrontMatter removes a leading YAML block and copies its scalar
// fields into meta.
func splitFrontMatter(content []byte, meta domain.Metadata) (string, error) {
	content = bytes.TrimPrefix(content, []byte("\uFEFF"))
	if !bytes.HasPrefix(content, frontMatterFence) {
		return string(content), nil
	}

	rest := content[len(frontMatterFence):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return string(content), nil
	}
	rest = rest[nl+1:]

	end := bytes.Index(rest, []byte("\n---"))
	var block []byte
	switch {
	case bytes.HasPrefix(rest, frontMatterFence):
		block, rest = nil, rest[len(frontMatterFence):]
	case end >= 0:
		block, rest = rest[:end], rest[end+len("\n---"):]
	default:
		return string(content), nil
	}

	var fields map[string]any
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return "", err
	}
	for k, v := range fields {
		if !domain.ValidField(k) {
			continue
		}
		switch v.(type) {
		case string, int, int64, float64, bool:
			meta[k] = v
		}
	}
	return string(rest), nil
}

// title returns the first level-one heading or a name from the filename.
func title(body, filename string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

// rule is one rewrite applied by Strip, in order.
type rule struct {
	re   *regexp.Regexp
	repl string
}

var rules = []rule{
	{regexp.MustCompile("(?s)```.*?```"), ""},                    // fenced code
	{regexp.MustCompile("`([^`]+)`"), "$1"},                      // inline code keeps its text
	{regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`), ""},             // images
	{regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`), "$1"},          // links
	{regexp.MustCompile(`(?m)^[ \t]{0,3}#{1,6}[ \t]+`), ""},      // headings
	{regexp.MustCompile(`(?m)^[ \t]{0,3}>[ \t]?`), ""},           // blockquotes
	{regexp.MustCompile(`(?m)^[ \t]*([-*_][ \t]*){3,}$`), ""},    // horizontal rules
	{regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+\.)[ \t]+`), ""}, // list markers
	{regexp.MustCompile(`(\*\*|__)(.+?)(\*\*|__)`), "$2"},        // bold
	{regexp.MustCompile(`(^|[^\w*])\*([^*\n]+)\*`), "$1$2"},      // italic
	{regexp.MustCompile(`<[^>\n]+>`), ""},                        // inline html
	{regexp.MustCompile(`\n{3,}`), "\n\n"},
}

// Strip removes common Markdown formatting and returns plain text.
func Strip(content string) string {
	for _, r := range rules {
		content = r.re.ReplaceAllString(content, r.repl)
	}
	return strings.TrimSpace(content)
}
