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


package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidMessage indicates a Message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrInvalidRole indicates an unknown message role.
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidTopK indicates a negative topK retrieval parameter.
	ErrInvalidTopK = errors.New("topK cannot be negative")

	// ErrInvalidThreshold indicates a similarity threshold outside [0,1].
	ErrInvalidThreshold = errors.New("similarity threshold must be between 0 and 1")

	// ErrMissingKnowledgeID indicates a chunk without an owning knowledge record.
	ErrMissingKnowledgeID = errors.New("chunk requires a knowledge id")
)
