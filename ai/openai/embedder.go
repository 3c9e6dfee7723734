package openai

import (
	"context"
	"log/slog"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder over an OpenAI-compatible embedding API.
// Single texts go through the query path, batches through the document
// path. Newlines are stripped before embedding.
type Embedder struct {
	vectorizer embeddings.Embedder
	model      string
	logger     *slog.Logger
}

// newEmbedder is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newEmbedder(config *ai.Config) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
	)
	if err != nil {
		return nil, err
	}

	vectorizer, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		vectorizer: vectorizer,
		model:      config.EmbeddingModel,
		logger:     slog.Default().With("component", "openai-embedder"),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config) (ai.Embedder, error) {
	return newEmbedder(config)
}

// EmbedText embeds one text, typically a search query.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := e.vectorizer.EmbedQuery(ctx, text)
	if err != nil {
		e.logger.Error("failed to embed text", "model", e.model, "length", len(text), "err", err)
		return nil, err
	}
	return vector, nil
}

// EmbedTexts embeds a batch of texts, typically document chunks headed for
// the vector index. The result preserves input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.vectorizer.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to embed batch", "model", e.model, "count", len(texts), "err", err)
		return nil, err
	}
	return vectors, nil
}
