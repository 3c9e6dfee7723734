package extract

import (
	"context"
	"io"
	"path"
	"strings"
)

// Segment is one span of extracted text with a best-effort format hint.
type Segment struct {
	Text   string
	Format string // "text", "markdown", "html"
}

// Extractor turns a raw byte stream into text segments.
// name is the original filename and may be used for format detection.
// Implementations must be thread-safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, name string) ([]Segment, error)
}

// Auto routes extraction to a format-specific extractor based on the file
// extension. Unknown extensions fall back to plain text.
type Auto struct {
	text     Extractor
	markdown Extractor
	html     Extractor
}

// NewAuto creates the default format-routing extractor.
//
// Returns Extractor interface to enforce abstraction.
func NewAuto() Extractor {
	return &Auto{
		text:     NewText(),
		markdown: NewMarkdown(),
		html:     NewHTML(),
	}
}

// Extract dispatches on the filename extension.
func (a *Auto) Extract(ctx context.Context, r io.Reader, name string) ([]Segment, error) {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return a.markdown.Extract(ctx, r, name)
	case ".html", ".htm":
		return a.html.Extract(ctx, r, name)
	default:
		return a.text.Extract(ctx, r, name)
	}
}
