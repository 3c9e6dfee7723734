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


// Package storage provides the storage abstraction layer for lorekeep.
//
// This package defines the capability interfaces the core pipeline depends
// on, decoupled from any concrete backend:
//
//   - BlobStore: raw uploaded file storage
//   - KnowledgeRepository: relational knowledge-record CRUD
//   - VectorIndex: semantic chunk index with metadata-filtered queries
//
// # Constructor Return Type Pattern
//
// Implementation sub-packages follow a strict "return interface" pattern for
// public constructors to enforce abstraction:
//
//	repo, err := badger.NewKnowledgeRepository(backend) // returns storage.KnowledgeRepository
//
// # Implementations
//
//   - storage/badger: BadgerDB-backed knowledge records and blobs, encoded
//     through badgerhold
//   - storage/memvec: in-memory embedder-backed vector index used by tests
//     and single-process deployments
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
package storage
