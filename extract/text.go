package extract

import (
	"context"
	"io"

	"github.com/tmc/langchaingo/documentloaders"
)

// Text extracts plain-text files as a single segment.
type Text struct{}

// NewText creates a plain-text extractor.
func NewText() Extractor {
	return &Text{}
}

// Extract loads the stream through the langchaingo text loader.
func (t *Text) Extract(ctx context.Context, r io.Reader, name string) ([]Segment, error) {
	docs, err := documentloaders.NewText(r).Load(ctx)
	if err != nil {
		return nil, err
	}

	segments := make([]Segment, 0, len(docs))
	for _, doc := range docs {
		segments = append(segments, Segment{Text: doc.PageContent, Format: "text"})
	}
	return segments, nil
}
