package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/ai/mock"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/extract"
	"github.com/lorekeep/lorekeep/storage"
	"github.com/lorekeep/lorekeep/storage/badger"
	"github.com/lorekeep/lorekeep/storage/memvec"
)

// charSplitter splits on a fixed rune count so chunk boundaries are
// deterministic without a tokenizer.
type charSplitter struct {
	size int
}

func (s charSplitter) SplitText(text string) ([]string, error) {
	runes := []rune(text)
	var parts []string
	for len(runes) > 0 {
		n := s.size
		if n > len(runes) {
			n = len(runes)
		}
		parts = append(parts, string(runes[:n]))
		runes = runes[n:]
	}
	return parts, nil
}

// failingExtractor always errors, driving jobs to FAILED.
type failingExtractor struct{}

func (failingExtractor) Extract(ctx context.Context, r io.Reader, name string) ([]extract.Segment, error) {
	return nil, errors.New("unreadable document")
}

type pipelineFixture struct {
	pipeline  *Pipeline
	knowledge storage.KnowledgeRepository
	blobs     storage.BlobStore
	index     storage.VectorIndex
}

func newFixture(t *testing.T, opts ...Option) *pipelineFixture {
	t.Helper()

	knowledge, blobs, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	index, err := memvec.NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)

	opts = append([]Option{WithSplitter(charSplitter{size: 800})}, opts...)
	pipeline, err := NewPipeline(knowledge, blobs, index, opts...)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)

	return &pipelineFixture{pipeline: pipeline, knowledge: knowledge, blobs: blobs, index: index}
}

// stage creates a knowledge record and uploads content under its blob key.
func (f *pipelineFixture) stage(t *testing.T, content string) (*core.KnowledgeRecord, string) {
	t.Helper()
	ctx := context.Background()

	record, err := f.knowledge.Create(ctx, &core.KnowledgeRecord{
		SpaceID: 7,
		Title:   "Guide",
		Type:    core.DocUnstructured,
	})
	require.NoError(t, err)

	key, err := f.blobs.Upload(ctx, strings.NewReader(content), "guide.txt", "knowledge", record.SpaceID)
	require.NoError(t, err)
	require.NoError(t, f.knowledge.UpdateBlobKey(ctx, record.ID, key))

	return record, key
}

func waitTerminal(t *testing.T, handle *JobHandle) core.JobState {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if handle.Done() {
			return handle.State()
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %d never reached a terminal state", handle.KnowledgeID())
	return ""
}

func TestNewPipelineRequiresDependencies(t *testing.T) {
	knowledge, blobs, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer backend.Close()

	index, err := memvec.NewIndex(mock.NewMockEmbedder())
	require.NoError(t, err)

	_, err = NewPipeline(nil, blobs, index)
	assert.ErrorIs(t, err, ErrKnowledgeRepositoryRequired)

	_, err = NewPipeline(knowledge, nil, index)
	assert.ErrorIs(t, err, ErrBlobStoreRequired)

	_, err = NewPipeline(knowledge, blobs, nil)
	assert.ErrorIs(t, err, ErrVectorIndexRequired)
}

func TestSubmitRunsToDone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, key := f.stage(t, "The configuration file lives under /etc and is reloaded on SIGHUP.")

	handle, err := f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)

	assert.Equal(t, core.JobDone, waitTerminal(t, handle))

	state, ok := f.pipeline.JobState(record.ID)
	require.True(t, ok)
	assert.Equal(t, core.JobDone, state)

	// terminal state is mirrored on the record
	stored, err := f.knowledge.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobDone, stored.ParseJob)

	results, err := f.index.SimilaritySearch(ctx, "configuration file", storage.ChunkFilter{}, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, record.ID, results[0].Chunk.Metadata.KnowledgeID)
	assert.Equal(t, record.SpaceID, results[0].Chunk.Metadata.SpaceID)
}

func TestSubmitFailureEndsFailed(t *testing.T) {
	f := newFixture(t, WithExtractor(failingExtractor{}))
	ctx := context.Background()

	record, key := f.stage(t, "anything")

	handle, err := f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)

	assert.Equal(t, core.JobFailed, waitTerminal(t, handle))

	stored, err := f.knowledge.Get(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, core.JobFailed, stored.ParseJob)
}

func TestSubmitMissingBlobEndsFailed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, _ := f.stage(t, "anything")

	handle, err := f.pipeline.Submit(ctx, record.ID, "knowledge/7/no-such-blob")
	require.NoError(t, err)

	assert.Equal(t, core.JobFailed, waitTerminal(t, handle))
}

func TestLargeDocumentSplitsIntoChunks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// ~3000 units at 800 per chunk yields 4 chunks; varied content keeps
	// the content-hash chunk ids distinct
	var doc strings.Builder
	for i := 0; doc.Len() < 3000; i++ {
		fmt.Fprintf(&doc, "section %d covers a different topic entirely. ", i)
	}
	record, key := f.stage(t, doc.String()[:3000])

	handle, err := f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)
	require.Equal(t, core.JobDone, waitTerminal(t, handle))

	results, err := f.index.SimilaritySearch(ctx, "aaa", storage.ChunkFilter{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 4)
	for _, result := range results {
		assert.Equal(t, record.ID, result.Chunk.Metadata.KnowledgeID)
	}
}

func TestSubmitRejectsConcurrentRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, key := f.stage(t, "short document")

	release := make(chan struct{})
	slow := WithExtractor(extractFunc(func(c context.Context, r io.Reader, name string) ([]extract.Segment, error) {
		<-release
		return []extract.Segment{{Text: "slow"}}, nil
	}))
	require.NoError(t, slow(f.pipeline))

	handle, err := f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)

	_, err = f.pipeline.Submit(ctx, record.ID, key)
	assert.ErrorIs(t, err, ErrJobAlreadyRunning)

	close(release)
	require.Equal(t, core.JobDone, waitTerminal(t, handle))

	// a terminal job can be restarted
	handle, err = f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)
	assert.Equal(t, core.JobDone, waitTerminal(t, handle))
}

type extractFunc func(ctx context.Context, r io.Reader, name string) ([]extract.Segment, error)

func (f extractFunc) Extract(ctx context.Context, r io.Reader, name string) ([]extract.Segment, error) {
	return f(ctx, r, name)
}

func TestEmbedMarkdownIndexesShortTextAsSingleChunk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, _ := f.stage(t, "unused")
	f.pipeline.EmbedMarkdown(ctx, record.ID, "# Setup\n\nRun the installer.")

	results, err := f.index.SimilaritySearch(ctx, "installer", storage.ChunkFilter{}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "manual", results[0].Chunk.Metadata.Source)
}

func TestEmbedMarkdownBlankIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, _ := f.stage(t, "unused")
	f.pipeline.EmbedMarkdown(ctx, record.ID, "   \n\t  ")

	results, err := f.index.SimilaritySearch(ctx, "anything", storage.ChunkFilter{}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEmbedMarkdownSplitsLongText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, _ := f.stage(t, "unused")
	f.pipeline.EmbedMarkdown(ctx, record.ID, strings.Repeat("b", 800)+strings.Repeat("c", 800))

	results, err := f.index.SimilaritySearch(ctx, "bbb", storage.ChunkFilter{}, 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestDeleteVectorsByKnowledge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, key := f.stage(t, "some searchable content about deletion")

	handle, err := f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)
	require.Equal(t, core.JobDone, waitTerminal(t, handle))

	f.pipeline.DeleteVectorsByKnowledge(ctx, record.ID)

	filter := storage.ChunkFilter{KnowledgeIDs: []core.ID{record.ID}}
	results, err := f.index.SimilaritySearch(ctx, "deletion", filter, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReplaceExistingDropsOldChunks(t *testing.T) {
	f := newFixture(t, WithReplaceExisting(true))
	ctx := context.Background()

	record, key := f.stage(t, "first version of the document")

	handle, err := f.pipeline.Submit(ctx, record.ID, key)
	require.NoError(t, err)
	require.Equal(t, core.JobDone, waitTerminal(t, handle))

	key2, err := f.blobs.Upload(ctx, strings.NewReader("second version entirely"), "guide.txt", "knowledge", record.SpaceID)
	require.NoError(t, err)

	handle, err = f.pipeline.Submit(ctx, record.ID, key2)
	require.NoError(t, err)
	require.Equal(t, core.JobDone, waitTerminal(t, handle))

	filter := storage.ChunkFilter{KnowledgeIDs: []core.ID{record.ID}}
	results, err := f.index.SimilaritySearch(ctx, "version", filter, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "second version entirely", results[0].Chunk.Text)
}
