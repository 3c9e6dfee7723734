package chat

import (
	"fmt"
	"strings"

	"github.com/lorekeep/lorekeep/core"
)

// FallbackAnswer is returned verbatim when retrieval finds nothing
// relevant; the model is not consulted in that case.
const FallbackAnswer = "I could not find anything relevant in the knowledge base. Try rephrasing the question or adding documents first."

// snippetLength bounds the source snippets attached to a response.
const snippetLength = 200

const systemPromptTemplate = `You are a knowledge-base assistant. Answer the user's questions using only the reference material below.

Rules:
1. Base every statement strictly on the reference material; never invent facts.
2. If the material does not cover the question, reply exactly: "%s"
3. Keep answers concise and name the source titles you relied on.
4. Format answers as markdown.

Reference material:
%s`

// systemPrompt renders the instructional template with the retrieved
// context embedded.
func systemPrompt(contextBlock string) string {
	return fmt.Sprintf(systemPromptTemplate, FallbackAnswer, contextBlock)
}

// buildContext renders retrieval results as a context block: a numbered
// header per knowledge record followed by its top chunks.
func buildContext(results []*core.SearchResult) string {
	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[Source %d: %s]\n", i+1, result.Title)
		for j, chunk := range result.Chunks {
			if j > 0 {
				b.WriteString("\n")
			}
			b.WriteString(chunk.Chunk.Text)
		}
	}
	return b.String()
}

// snippet returns the first ~200 characters of text, ellipsised.
func snippet(text string) string {
	runes := []rune(text)
	if len(runes) <= snippetLength {
		return text
	}
	return string(runes[:snippetLength]) + "..."
}
