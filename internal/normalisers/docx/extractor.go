// Package docx extracts text from Word (.docx) uploads.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// MIMEType is the Office Open XML word processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Archive members read by the extractor.
const (
	documentPart = "word/document.xml"
	corePart     = "docProps/core.xml"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles DOCX documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 60
}

// Extract reads the body text, one paragraph per line.
func (e *Extractor) Extract(_ context.Context, upload *domain.Upload) (*driven.ExtractResult, error) {
	if upload == nil {
		return nil, domain.ErrInvalidInput
	}

	archive, err := zip.NewReader(bytes.NewReader(upload.Content), int64(len(upload.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not a docx archive: %w", domain.ErrInvalidInput, upload.Filename, err)
	}

	body, err := readPart(archive, documentPart)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrInvalidInput, upload.Filename, err)
	}

	text, err := bodyText(body)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, upload.Filename, err)
	}
	if text == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrExtractionEmpty, upload.Filename)
	}

	return &driven.ExtractResult{
		Text: text,
		Metadata: domain.Metadata{
			"title":  title(archive, upload.Filename),
			"format": "docx",
		},
	}, nil
}

var errMissingPart = errors.New("missing archive member")

// readPart returns the contents of one archive member.
func readPart(archive *zip.Reader, name string) ([]byte, error) {
	f, err := archive.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w %s", errMissingPart, name)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// bodyText walks the document XML, emitting run text and turning
// paragraphs, breaks and tabs into whitespace.
func bodyText(doc []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(doc))

	var b strings.Builder
	inText := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				inText = true
			case "tab":
				b.WriteByte('\t')
			case "br", "cr":
				b.WriteByte('\n')
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "t":
				inText = false
			case "p":
				b.WriteByte('\n')
			}
		case xml.CharData:
			if inText {
				b.Write(el)
			}
		}
	}

	var lines []string
	for _, line := range strings.Split(b.String(), "\n") {
		if line = strings.TrimRight(line, " \t"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// title returns the core properties title or a name from the filename.
func title(archive *zip.Reader, filename string) string {
	if core, err := readPart(archive, corePart); err == nil {
		var props struct {
			Title string `xml:"title"`
		}
		if xml.Unmarshal(core, &props) == nil {
			if t := strings.TrimSpace(props.Title); t != "" {
				return t
			}
		}
	}
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}
