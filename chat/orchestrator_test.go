package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/ai/mock"
	"github.com/lorekeep/lorekeep/conversation"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/search"
	"github.com/lorekeep/lorekeep/storage"
	"github.com/lorekeep/lorekeep/storage/badger"
)

// stubIndex returns canned similarity results.
type stubIndex struct {
	results []core.ScoredChunk
	err     error
}

func (s *stubIndex) Add(ctx context.Context, chunks []core.DocumentChunk) error { return nil }

func (s *stubIndex) Delete(ctx context.Context, filter storage.ChunkFilter) error { return nil }

func (s *stubIndex) SimilaritySearch(ctx context.Context, query string, filter storage.ChunkFilter, topK int) ([]core.ScoredChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type fixture struct {
	orchestrator *Orchestrator
	store        *conversation.Store
	model        *mock.MockChatModel
	index        *stubIndex
}

// newFixture wires an orchestrator over a stub index holding the given
// chunks, with matching knowledge records created for each distinct id.
func newFixture(t *testing.T, titles map[core.ID]string, results ...core.ScoredChunk) *fixture {
	t.Helper()

	repo, _, backend, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	for id, title := range titles {
		_, err := repo.Create(context.Background(), &core.KnowledgeRecord{
			ID: id, SpaceID: 1, Title: title, Type: core.DocUnstructured,
		})
		require.NoError(t, err)
	}

	index := &stubIndex{results: results}
	retriever, err := search.NewRetriever(index, repo)
	require.NoError(t, err)

	store, err := conversation.NewStore()
	require.NoError(t, err)

	model := mock.NewMockChatModel()
	orchestrator, err := NewOrchestrator(store, retriever, model)
	require.NoError(t, err)

	return &fixture{orchestrator: orchestrator, store: store, model: model, index: index}
}

func guideChunk(score float64) core.ScoredChunk {
	return core.ScoredChunk{
		Chunk: core.NewDocumentChunk(
			"Set the X option in the config file and restart the service.",
			core.ChunkMetadata{KnowledgeID: 5, SpaceID: 1},
		),
		Score: score,
	}
}

func TestChatEmptyRetrievalReturnsFallback(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.orchestrator.Chat(context.Background(), Request{Question: "anything?"})
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, resp.Answer)
	assert.Empty(t, resp.Sources)
	assert.Zero(t, resp.RetrievedCount)
	assert.NotEmpty(t, resp.ConversationID)
	assert.Zero(t, f.model.CallCount(), "model must not be invoked on empty retrieval")
}

func TestChatReturnsAnswerAndSources(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))

	resp, err := f.orchestrator.Chat(context.Background(), Request{Question: "how do I configure X?"})
	require.NoError(t, err)

	assert.NotEqual(t, FallbackAnswer, resp.Answer)
	assert.Equal(t, 1, resp.RetrievedCount)
	require.Len(t, resp.Sources, 1)
	assert.Equal(t, core.ID(5), resp.Sources[0].KnowledgeID)
	assert.Equal(t, "Guide", resp.Sources[0].Title)
	assert.InDelta(t, 0.92, resp.Sources[0].Score, 1e-9)
	assert.Contains(t, resp.Sources[0].Snippet, "Set the X option")
	assert.Equal(t, 1, f.model.CallCount())
}

func TestChatInjectsSystemPromptOnceAcrossTurns(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))
	ctx := context.Background()

	first, err := f.orchestrator.Chat(ctx, Request{Question: "how do I configure X?"})
	require.NoError(t, err)

	_, err = f.orchestrator.Chat(ctx, Request{
		Question:       "and how do I undo that?",
		ConversationID: first.ConversationID,
	})
	require.NoError(t, err)

	history := f.store.History(first.ConversationID)
	systemCount := 0
	for _, m := range history {
		if m.Role == core.RoleSystem {
			systemCount++
		}
	}
	assert.Equal(t, 1, systemCount)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Contains(t, history[0].Content, "[Source 1: Guide]")
}

func TestChatHistoryGrowsInTurnOrder(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))

	resp, err := f.orchestrator.Chat(context.Background(), Request{Question: "how do I configure X?"})
	require.NoError(t, err)

	history := f.store.History(resp.ConversationID)
	require.Len(t, history, 3)
	assert.Equal(t, core.RoleSystem, history[0].Role)
	assert.Equal(t, core.RoleUser, history[1].Role)
	assert.Equal(t, "how do I configure X?", history[1].Content)
	assert.Equal(t, core.RoleAssistant, history[2].Role)
	assert.Equal(t, resp.Answer, history[2].Content)
}

func TestChatLongSnippetIsEllipsised(t *testing.T) {
	long := strings.Repeat("the configuration reference explains every option in detail. ", 10)
	chunk := core.ScoredChunk{
		Chunk: core.NewDocumentChunk(long, core.ChunkMetadata{KnowledgeID: 5, SpaceID: 1}),
		Score: 0.9,
	}
	f := newFixture(t, map[core.ID]string{5: "Guide"}, chunk)

	resp, err := f.orchestrator.Chat(context.Background(), Request{Question: "options?"})
	require.NoError(t, err)

	require.Len(t, resp.Sources, 1)
	assert.Len(t, []rune(resp.Sources[0].Snippet), snippetLength+3)
	assert.True(t, strings.HasSuffix(resp.Sources[0].Snippet, "..."))
}

func TestChatRejectsBlankQuestion(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.orchestrator.Chat(context.Background(), Request{Question: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestChatPropagatesRetrievalErrors(t *testing.T) {
	f := newFixture(t, nil)
	f.index.err = errors.New("index unavailable")

	_, err := f.orchestrator.Chat(context.Background(), Request{Question: "anything?"})
	assert.ErrorContains(t, err, "index unavailable")
	assert.Zero(t, f.model.CallCount())
}

func TestChatModelErrorLeavesNoAssistantMessage(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))
	f.model.CompleteFunc = func(ctx context.Context, messages []core.Message) (string, error) {
		return "", errors.New("model unavailable")
	}

	_, err := f.orchestrator.Chat(context.Background(), Request{Question: "how do I configure X?"})
	require.Error(t, err)

	// system + user were appended before the call, but no assistant message
	assert.Equal(t, 1, f.store.ActiveCount())
}

func TestChatStreamDeliversDeltasAndRecordsAnswer(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))

	var deltas []string
	id, err := f.orchestrator.ChatStream(context.Background(), Request{Question: "how do I configure X?"},
		func(ctx context.Context, delta string) error {
			deltas = append(deltas, delta)
			return nil
		})
	require.NoError(t, err)
	require.NotEmpty(t, deltas)

	full := strings.Join(deltas, "")
	history := f.store.History(id)
	require.NotEmpty(t, history)
	last := history[len(history)-1]
	assert.Equal(t, core.RoleAssistant, last.Role)
	assert.Equal(t, full, last.Content)
}

func TestChatStreamEmptyRetrievalEmitsSingleFallbackDelta(t *testing.T) {
	f := newFixture(t, nil)

	var deltas []string
	_, err := f.orchestrator.ChatStream(context.Background(), Request{Question: "anything?"},
		func(ctx context.Context, delta string) error {
			deltas = append(deltas, delta)
			return nil
		})
	require.NoError(t, err)
	assert.Equal(t, []string{FallbackAnswer}, deltas)
	assert.Zero(t, f.model.CallCount())
}

func TestChatStreamErrorSkipsHistoryAppend(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))
	f.model.StreamFunc = func(ctx context.Context, messages []core.Message, fn ai.StreamFunc) error {
		if err := fn(ctx, "partial "); err != nil {
			return err
		}
		return errors.New("connection reset")
	}

	var deltas []string
	id, err := f.orchestrator.ChatStream(context.Background(), Request{Question: "how do I configure X?"},
		func(ctx context.Context, delta string) error {
			deltas = append(deltas, delta)
			return nil
		})
	require.Error(t, err)
	assert.Equal(t, []string{"partial "}, deltas)

	history := f.store.History(id)
	for _, m := range history {
		assert.NotEqual(t, core.RoleAssistant, m.Role)
	}
}

func TestClearConversation(t *testing.T) {
	f := newFixture(t, map[core.ID]string{5: "Guide"}, guideChunk(0.92))

	resp, err := f.orchestrator.Chat(context.Background(), Request{Question: "how do I configure X?"})
	require.NoError(t, err)

	f.orchestrator.ClearConversation(resp.ConversationID)
	assert.Empty(t, f.store.History(resp.ConversationID))
}
