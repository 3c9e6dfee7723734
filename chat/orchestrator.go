// Copyright 2025 The lorekeep Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/conversation"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/search"
	"github.com/lorekeep/lorekeep/storage"
)

const (
	// DefaultTopK is the retrieval depth used when a request leaves TopK zero.
	DefaultTopK = 5

	// DefaultThreshold is the similarity cutoff used when a request leaves
	// Threshold zero.
	DefaultThreshold = 0.7

	// DefaultChunksPerKnowledge bounds chunks per source in the context block.
	DefaultChunksPerKnowledge = 3
)

// Request is a single chat turn.
type Request struct {
	// Question is the user's message. Required.
	Question string

	// ConversationID continues an existing conversation; blank creates one.
	ConversationID string

	// SpaceID restricts retrieval to one space. 0 = all spaces.
	SpaceID core.ID

	// KnowledgeIDs restricts retrieval to specific records. Empty = all.
	KnowledgeIDs []core.ID

	// TopK, Threshold, and ChunksPerKnowledge tune retrieval; zero values
	// fall back to the package defaults.
	TopK               int
	Threshold          float64
	ChunksPerKnowledge int
}

// Source describes one knowledge record that contributed to an answer.
type Source struct {
	KnowledgeID core.ID
	Title       string
	Snippet     string
	Score       float64
}

// Response is the result of a blocking chat turn.
type Response struct {
	Answer         string
	ConversationID string
	Sources        []Source
	RetrievedCount int
}

// Orchestrator drives retrieval-augmented chat turns: it resolves the
// conversation, retrieves relevant knowledge, primes the session with an
// instructional system prompt, and invokes the language model with the
// full history.
type Orchestrator struct {
	store     *conversation.Store
	retriever *search.Retriever
	model     ai.ChatModel
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// NewOrchestrator creates a new chat orchestrator.
func NewOrchestrator(
	store *conversation.Store,
	retriever *search.Retriever,
	model ai.ChatModel,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if retriever == nil {
		return nil, ErrRetrieverRequired
	}
	if model == nil {
		return nil, ErrChatModelRequired
	}

	o := &Orchestrator{
		store:     store,
		retriever: retriever,
		model:     model,
		logger:    slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return o, nil
}

// Chat runs one blocking chat turn. When retrieval comes back empty the
// fixed fallback answer is returned and the model is not invoked.
func (o *Orchestrator) Chat(ctx context.Context, req Request) (*Response, error) {
	id, results, err := o.prepare(ctx, &req)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return &Response{
			Answer:         FallbackAnswer,
			ConversationID: id,
			Sources:        []Source{},
			RetrievedCount: 0,
		}, nil
	}

	o.primeAndAppend(id, req.Question, results)

	answer, err := o.model.Complete(ctx, o.store.History(id))
	if err != nil {
		o.logger.Error("error invoking chat model", "conversationId", id, "err", err)
		return nil, err
	}
	o.store.AppendAssistant(id, answer)

	return &Response{
		Answer:         answer,
		ConversationID: id,
		Sources:        sources(results),
		RetrievedCount: len(results),
	}, nil
}

// ChatStream runs one streaming chat turn, pushing model deltas through fn.
// The assistant message is appended to history only when the stream
// completes cleanly; on error the deltas already delivered stand but no
// history entry is recorded. Empty retrieval degrades to a single fallback
// delta without a model call. Returns the conversation id.
func (o *Orchestrator) ChatStream(ctx context.Context, req Request, fn ai.StreamFunc) (string, error) {
	id, results, err := o.prepare(ctx, &req)
	if err != nil {
		return "", err
	}

	if len(results) == 0 {
		return id, fn(ctx, FallbackAnswer)
	}

	o.primeAndAppend(id, req.Question, results)

	var answer strings.Builder
	err = o.model.StreamComplete(ctx, o.store.History(id), func(ctx context.Context, delta string) error {
		answer.WriteString(delta)
		return fn(ctx, delta)
	})
	if err != nil {
		o.logger.Error("chat stream ended with error", "conversationId", id, "err", err)
		return id, err
	}

	o.store.AppendAssistant(id, answer.String())
	return id, nil
}

// ClearConversation removes a conversation's history.
func (o *Orchestrator) ClearConversation(id string) {
	o.store.Clear(id)
}

// prepare validates the request, resolves the conversation id, and runs
// retrieval with defaults applied.
func (o *Orchestrator) prepare(ctx context.Context, req *Request) (string, []*core.SearchResult, error) {
	if strings.TrimSpace(req.Question) == "" {
		return "", nil, ErrEmptyQuestion
	}

	id := req.ConversationID
	if id == "" {
		id = o.store.NewSession()
	}

	if req.TopK == 0 {
		req.TopK = DefaultTopK
	}
	if req.Threshold == 0 {
		req.Threshold = DefaultThreshold
	}
	if req.ChunksPerKnowledge == 0 {
		req.ChunksPerKnowledge = DefaultChunksPerKnowledge
	}

	scope := storage.ChunkFilter{SpaceID: req.SpaceID, KnowledgeIDs: req.KnowledgeIDs}
	results, err := o.retriever.Search(ctx, req.Question, scope, req.TopK, req.Threshold, req.ChunksPerKnowledge)
	if err != nil {
		return "", nil, err
	}
	return id, results, nil
}

// primeAndAppend injects the system prompt on the session's first primed
// turn, then appends the user question. Priming happens at most once per
// session lifetime, so a mid-conversation history trim cannot cause a
// second injection.
func (o *Orchestrator) primeAndAppend(id, question string, results []*core.SearchResult) {
	if o.store.Prime(id) {
		o.store.AppendSystem(id, systemPrompt(buildContext(results)))
	}
	o.store.AppendUser(id, question)
}

func sources(results []*core.SearchResult) []Source {
	out := make([]Source, 0, len(results))
	for _, result := range results {
		top := ""
		if len(result.Chunks) > 0 {
			top = result.Chunks[0].Chunk.Text
		}
		out = append(out, Source{
			KnowledgeID: result.KnowledgeID,
			Title:       result.Title,
			Snippet:     snippet(top),
			Score:       result.AvgScore,
		})
	}
	return out
}
