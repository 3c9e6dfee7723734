package extract

import (
	"context"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTML extracts an HTML document as markdown. Navigation chrome, scripts
// and styles are stripped before conversion; the page title becomes a
// leading heading segment when present.
type HTML struct{}

// NewHTML creates an HTML extractor.
func NewHTML() Extractor {
	return &HTML{}
}

// Extract selects the page body and converts it to markdown.
func (h *HTML) Extract(ctx context.Context, r io.Reader, name string) ([]Segment, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	doc.Find("script, style, noscript, nav, header, footer").Remove()

	var segments []Segment

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		segments = append(segments, Segment{Text: "# " + title, Format: "markdown"})
	}

	body := doc.Find("body")
	if body.Length() == 0 {
		return segments, nil
	}

	bodyHTML, err := body.Html()
	if err != nil {
		return nil, err
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(bodyHTML)
	if err != nil {
		return nil, err
	}

	markdown = strings.TrimSpace(markdown)
	if markdown != "" {
		segments = append(segments, Segment{Text: markdown, Format: "markdown"})
	}

	return segments, nil
}
