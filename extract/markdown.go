package extract

import (
	"bytes"
	"context"
	"io"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown extracts the plain text of a markdown document, one segment per
// top-level block. Formatting syntax is dropped; code block contents are
// kept verbatim.
type Markdown struct {
	md goldmark.Markdown
}

// NewMarkdown creates a markdown extractor.
func NewMarkdown() Extractor {
	return &Markdown{md: goldmark.New()}
}

// Extract parses the markdown AST and collects text per top-level block.
func (m *Markdown) Extract(ctx context.Context, r io.Reader, name string) ([]Segment, error) {
	source, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	root := m.md.Parser().Parse(text.NewReader(source))

	var segments []Segment
	for block := root.FirstChild(); block != nil; block = block.NextSibling() {
		content := blockText(block, source)
		if content == "" {
			continue
		}
		segments = append(segments, Segment{Text: content, Format: "markdown"})
	}
	return segments, nil
}

// blockText flattens one block node into plain text.
func blockText(block ast.Node, source []byte) string {
	var buf bytes.Buffer

	_ = ast.Walk(block, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(source))
			if node.SoftLineBreak() || node.HardLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				line := lines.At(i)
				buf.Write(line.Value(source))
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	return string(bytes.TrimSpace(buf.Bytes()))
}
