package ai

import (
	"context"

	"github.com/lorekeep/lorekeep/core"
)

// StreamFunc receives one text delta from a streaming completion.
// Returning an error aborts the stream; deltas already delivered are not
// retracted.
type StreamFunc func(ctx context.Context, delta string) error

// ChatModel produces answers from an ordered conversation history.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	// Complete invokes the model with the full ordered history and returns
	// the answer text. Blocks until the model finishes.
	Complete(ctx context.Context, messages []core.Message) (string, error)

	// StreamComplete invokes the model and pushes text deltas to fn as they
	// are produced. The delta sequence is finite and non-restartable.
	// Returns once the model stream completes or fails; cancelling ctx
	// aborts the in-flight call.
	StreamComplete(ctx context.Context, messages []core.Message, fn StreamFunc) error
}

// Embedder generates vector embeddings from text for semantic similarity
// search. Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a
	// batch. The returned slice preserves input order.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Provider aggregates AI services for convenient initialization and
// lifecycle management. A provider creates and manages ChatModel and
// Embedder instances, ensuring they share configuration appropriately.
type Provider interface {
	// ChatModel returns the completion service.
	// The returned ChatModel is safe for concurrent use.
	ChatModel() ChatModel

	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
