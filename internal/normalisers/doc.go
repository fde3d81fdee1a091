// Package normalisers turns uploaded documents into plain text.
//
// Each subpackage provides a driven.Extractor for one family of formats.
// The Registry in this package picks the extractor for an upload by its
// declared MIME type, falling back to the filename extension.
package normalisers
