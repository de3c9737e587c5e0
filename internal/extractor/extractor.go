// Package extractor converts raw document bytes into plain text.
package extractor

import (
	"errors"
	"fmt"
	"strings"
)

// Extractor extracts plain text from one document format. An error means
// the bytes could not be parsed; empty-content detection happens in the
// parse stage, not here.
type Extractor interface {
	Extract(data []byte) (string, error)
}

// ErrUnsupportedType is returned by ForMIME for formats without an extractor.
var ErrUnsupportedType = errors.New("unsupported mime type")

const (
	mimePDF      = "application/pdf"
	mimeText     = "text/plain"
	mimeCSV      = "text/csv"
	mimeMarkdown = "text/markdown"
	mimeHTML     = "text/html"
	mimeXHTML    = "application/xhtml+xml"
	mimeDOCX     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeODT      = "application/vnd.oasis.opendocument.text"
	mimeRTF      = "application/rtf"
	mimeDOC      = "application/msword"
)

// ForMIME returns the extractor for a MIME type.
func ForMIME(mimeType string) (Extractor, error) {
	switch normalizeMIME(mimeType) {
	case mimePDF:
		return &PDF{}, nil
	case mimeText, mimeCSV:
		return &Text{}, nil
	case mimeMarkdown, "text/x-markdown":
		return &Markdown{}, nil
	case mimeHTML, mimeXHTML:
		return &HTML{}, nil
	case mimeDOCX:
		return &DOCX{}, nil
	case mimeODT, mimeRTF, mimeDOC:
		return &Universal{MIMEType: normalizeMIME(mimeType)}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}
}

// IsSupported reports whether a MIME type has an extractor.
func IsSupported(mimeType string) bool {
	_, err := ForMIME(mimeType)
	return err == nil
}

// normalizeMIME lowercases the type and drops parameters like charset.
func normalizeMIME(m string) string {
	if i := strings.Index(m, ";"); i >= 0 {
		m = m[:i]
	}
	return strings.ToLower(strings.TrimSpace(m))
}
