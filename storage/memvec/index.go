package memvec

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"sync"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/storage"
)

// entry pairs an indexed chunk with its embedding.
type entry struct {
	chunk  core.DocumentChunk
	vector []float32
}

// Index implements storage.VectorIndex in process memory.
// Embeddings are produced through the configured ai.Embedder; queries score
// by cosine similarity. Suitable for tests and single-process deployments.
type Index struct {
	mu       sync.RWMutex
	entries  map[core.ID]entry
	embedder ai.Embedder
	logger   *slog.Logger
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		idx.logger = logger
		return nil
	}
}

// NewIndex creates an in-memory vector index.
//
// Returns storage.VectorIndex interface to enforce abstraction.
func NewIndex(embedder ai.Embedder, opts ...Option) (storage.VectorIndex, error) {
	if embedder == nil {
		return nil, storage.ErrEmbedderRequired
	}

	idx := &Index{
		entries:  make(map[core.ID]entry),
		embedder: embedder,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(idx); err != nil {
			return nil, err
		}
	}

	return idx, nil
}

// Add embeds and indexes chunks in one batch.
// A chunk whose content ID is already present is overwritten.
func (idx *Index) Add(ctx context.Context, chunks []core.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		if err := core.ValidateChunk(&chunk); err != nil {
			return err
		}
		texts[i] = chunk.Text
	}

	// Embedding is the blocking call; do it before taking the lock.
	vectors, err := idx.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for i, chunk := range chunks {
		idx.entries[chunk.ID] = entry{chunk: chunk, vector: vectors[i]}
	}

	idx.logger.Debug("indexed chunks", "count", len(chunks), "total", len(idx.entries))
	return nil
}

// Delete removes every chunk whose metadata matches the filter.
func (idx *Index) Delete(ctx context.Context, filter storage.ChunkFilter) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	for id, e := range idx.entries {
		if filter.Matches(e.chunk.Metadata) {
			delete(idx.entries, id)
		}
	}
	return nil
}

// SimilaritySearch embeds the query and returns up to topK matching chunks
// ordered by descending cosine similarity.
func (idx *Index) SimilaritySearch(ctx context.Context, query string, filter storage.ChunkFilter, topK int) ([]core.ScoredChunk, error) {
	if topK <= 0 {
		return []core.ScoredChunk{}, nil
	}

	queryVector, err := idx.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	results := make([]core.ScoredChunk, 0, len(idx.entries))
	for _, e := range idx.entries {
		if !filter.Matches(e.chunk.Metadata) {
			continue
		}
		results = append(results, core.ScoredChunk{
			Chunk: e.chunk,
			Score: cosineSimilarity(queryVector, e.vector),
		})
	}
	idx.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > topK {
		results = results[:topK]
	}

	return results, nil
}

// Len returns the number of indexed chunks (for diagnostics and tests).
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// cosineSimilarity computes the cosine of the angle between two vectors,
// clamped to [0,1] so scores compare cleanly against similarity thresholds.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
