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

package lorekeep

import (
	"log/slog"

	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/ai/openai"
	"github.com/lorekeep/lorekeep/chat"
	"github.com/lorekeep/lorekeep/conversation"
	"github.com/lorekeep/lorekeep/ingestion"
	"github.com/lorekeep/lorekeep/search"
	"github.com/lorekeep/lorekeep/storage"
	"github.com/lorekeep/lorekeep/storage/badger"
	"github.com/lorekeep/lorekeep/storage/memvec"
)

// Service wires storage, the AI provider, the ingestion pipeline and the
// chat orchestrator into one knowledge-base backend.
type Service struct {
	backend       *badger.Backend
	knowledge     storage.KnowledgeRepository
	blobs         storage.BlobStore
	index         storage.VectorIndex
	provider      ai.Provider
	pipeline      *ingestion.Pipeline
	retriever     *search.Retriever
	conversations *conversation.Store
	orchestrator  *chat.Orchestrator
	logger        *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	aiConfig         *ai.Config
	inMemory         bool
	pipelineOpts     []ingestion.Option
	conversationOpts []conversation.Option
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) ServiceOption {
	return func(o *serviceOptions) {
		if config != nil {
			o.aiConfig = config
		}
	}
}

// WithInMemory keeps all storage in memory; nothing survives a restart.
func WithInMemory() ServiceOption {
	return func(o *serviceOptions) {
		o.inMemory = true
	}
}

// WithPipelineOptions forwards options to the ingestion pipeline.
func WithPipelineOptions(opts ...ingestion.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithConversationOptions forwards options to the conversation store.
func WithConversationOptions(opts ...conversation.Option) ServiceOption {
	return func(o *serviceOptions) {
		o.conversationOpts = append(o.conversationOpts, opts...)
	}
}

// NewService opens the storage backend at filePath and assembles the full
// service.
func NewService(filePath string, opts ...ServiceOption) (*Service, error) {
	// Apply options
	options := &serviceOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	// Create knowledge repository
	knowledge, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	// Create blob store
	blobs, err := badger.NewBlobStore(backend)
	if err != nil {
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	// Create AI provider with configured settings
	provider, err := openai.NewProvider(options.aiConfig)
	if err != nil {
		blobs.Close()
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	index, err := memvec.NewIndex(provider.Embedder())
	if err != nil {
		provider.Close()
		blobs.Close()
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	pipeline, err := ingestion.NewPipeline(knowledge, blobs, index, options.pipelineOpts...)
	if err != nil {
		provider.Close()
		blobs.Close()
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	retriever, err := search.NewRetriever(index, knowledge)
	if err != nil {
		pipeline.Release()
		provider.Close()
		blobs.Close()
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	conversations, err := conversation.NewStore(options.conversationOpts...)
	if err != nil {
		pipeline.Release()
		provider.Close()
		blobs.Close()
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	orchestrator, err := chat.NewOrchestrator(conversations, retriever, provider.ChatModel())
	if err != nil {
		pipeline.Release()
		provider.Close()
		blobs.Close()
		knowledge.Close()
		backend.Close()
		return nil, err
	}

	return &Service{
		backend:       backend,
		knowledge:     knowledge,
		blobs:         blobs,
		index:         index,
		provider:      provider,
		pipeline:      pipeline,
		retriever:     retriever,
		conversations: conversations,
		orchestrator:  orchestrator,
		logger:        slog.Default(),
	}, nil
}

// Close releases the pipeline, the AI provider and the storage backend.
func (s *Service) Close() error {
	// Stop background work first
	s.pipeline.Release()

	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories
	if err := s.blobs.Close(); err != nil {
		s.logger.Error("error closing blob store", "err", err)
		return err
	}
	if err := s.knowledge.Close(); err != nil {
		s.logger.Error("error closing knowledge repository", "err", err)
		return err
	}

	// Close backend
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (s *Service) KnowledgeRepository() storage.KnowledgeRepository {
	return s.knowledge
}

func (s *Service) BlobStore() storage.BlobStore {
	return s.blobs
}

func (s *Service) VectorIndex() storage.VectorIndex {
	return s.index
}

func (s *Service) Pipeline() *ingestion.Pipeline {
	return s.pipeline
}

func (s *Service) Retriever() *search.Retriever {
	return s.retriever
}

func (s *Service) Conversations() *conversation.Store {
	return s.conversations
}

func (s *Service) Orchestrator() *chat.Orchestrator {
	return s.orchestrator
}
