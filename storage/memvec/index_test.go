package memvec

import (
	"context"
	"testing"

	"github.com/lorekeep/lorekeep/ai/mock"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// axisEmbedder maps known texts onto fixed axes so similarity scores are
// exact and predictable in tests.
type axisEmbedder struct {
	axes map[string][]float32
}

func (e *axisEmbedder) vector(text string) []float32 {
	if v, ok := e.axes[text]; ok {
		return v
	}
	return []float32{0, 0, 1}
}

func (e *axisEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.vector(text), nil
}

func (e *axisEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.vector(text)
	}
	return vectors, nil
}

func chunk(text string, knowledgeID, spaceID core.ID) core.DocumentChunk {
	return core.NewDocumentChunk(text, core.ChunkMetadata{
		KnowledgeID: knowledgeID,
		SpaceID:     spaceID,
		Source:      "test.txt",
	})
}

func TestNewIndex_RequiresEmbedder(t *testing.T) {
	_, err := NewIndex(nil)
	assert.ErrorIs(t, err, storage.ErrEmbedderRequired)
}

func TestIndex_AddAndSearch(t *testing.T) {
	embedder := &axisEmbedder{axes: map[string][]float32{
		"configure X": {1, 0, 0},
		"about cats":  {0, 1, 0},
		"query":       {1, 0, 0},
	}}
	idx, err := NewIndex(embedder)
	require.NoError(t, err)
	ctx := context.Background()

	err = idx.Add(ctx, []core.DocumentChunk{
		chunk("configure X", 5, 1),
		chunk("about cats", 6, 1),
	})
	require.NoError(t, err)

	results, err := idx.SimilaritySearch(ctx, "query", storage.ChunkFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// Exact axis match scores 1, orthogonal text scores 0.
	assert.Equal(t, "configure X", results[0].Chunk.Text)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.InDelta(t, 0.0, results[1].Score, 1e-9)
}

func TestIndex_AddIsIdempotentByContent(t *testing.T) {
	idx, err := NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	c := chunk("same text", 1, 1)
	require.NoError(t, idx.Add(ctx, []core.DocumentChunk{c}))
	require.NoError(t, idx.Add(ctx, []core.DocumentChunk{c}))

	assert.Equal(t, 1, idx.(*Index).Len())
}

func TestIndex_AddRejectsChunkWithoutKnowledgeID(t *testing.T) {
	idx, err := NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)

	bad := core.DocumentChunk{ID: 1, Text: "orphan"}
	assert.ErrorIs(t, idx.Add(context.Background(), []core.DocumentChunk{bad}), core.ErrMissingKnowledgeID)
}

func TestIndex_SpaceFilter(t *testing.T) {
	idx, err := NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []core.DocumentChunk{
		chunk("space one text", 1, 1),
		chunk("space two text", 2, 2),
	}))

	results, err := idx.SimilaritySearch(ctx, "text", storage.ChunkFilter{SpaceID: 2}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.ID(2), results[0].Chunk.Metadata.KnowledgeID)
}

func TestIndex_KnowledgeFilter(t *testing.T) {
	idx, err := NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []core.DocumentChunk{
		chunk("first knowledge", 10, 1),
		chunk("second knowledge", 11, 1),
		chunk("third knowledge", 12, 1),
	}))

	results, err := idx.SimilaritySearch(ctx, "knowledge", storage.ChunkFilter{KnowledgeIDs: []core.ID{10, 12}}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Contains(t, []core.ID{10, 12}, r.Chunk.Metadata.KnowledgeID)
	}
}

func TestIndex_DeleteByKnowledgeID(t *testing.T) {
	idx, err := NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []core.DocumentChunk{
		chunk("keep me", 1, 1),
		chunk("delete me", 2, 1),
		chunk("delete me too", 2, 1),
	}))

	require.NoError(t, idx.Delete(ctx, storage.ChunkFilter{KnowledgeIDs: []core.ID{2}}))

	// A search scoped to the deleted knowledge id finds nothing.
	results, err := idx.SimilaritySearch(ctx, "delete", storage.ChunkFilter{KnowledgeIDs: []core.ID{2}}, 10)
	require.NoError(t, err)
	assert.Empty(t, results)

	assert.Equal(t, 1, idx.(*Index).Len())
}

func TestIndex_TopKLimitsResults(t *testing.T) {
	idx, err := NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Add(ctx, []core.DocumentChunk{
		chunk("one", 1, 1),
		chunk("two", 1, 1),
		chunk("three", 1, 1),
	}))

	results, err := idx.SimilaritySearch(ctx, "anything", storage.ChunkFilter{}, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.SimilaritySearch(ctx, "anything", storage.ChunkFilter{}, 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}
