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


// Package ai provides abstractions for the AI services used in lorekeep.
//
// This package defines interfaces for the language-model and embedding
// capabilities the chat orchestrator and vector index depend on. It follows
// the dependency inversion principle: the domain packages depend on these
// abstractions, never on concrete clients.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - ChatModel: Produces blocking or streamed answers from message history
//   - Embedder: Generates vector embeddings from text
//   - Provider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes two implementation sub-packages:
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewChatModel, etc.) return
// INTERFACE types to enforce abstraction and prevent accidental coupling to
// concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.Provider
//
// Test utility constructors (mock.NewMockChatModel, mock.NewMockEmbedder)
// return CONCRETE types to enable test assertions and behavior injection via
// the mock's function fields.
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	answer, err := provider.ChatModel().Complete(ctx, history)
package ai
