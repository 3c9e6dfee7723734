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

import "fmt"

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - Role must be one of system, user, assistant
//   - Content must not be empty
//
// NOT validated:
//   - Timestamp (zero means "not recorded", which is acceptable in tests)
func ValidateMessage(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if err := ValidateRole(msg.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if msg.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	return nil
}

// ValidateRole checks that a role is one of the known values.
func ValidateRole(role Role) error {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}
}

// ValidateSearchParams validates retrieval tuning parameters.
//
// Validation rules:
//   - topK must be >= 0 (0 means "no results requested", a valid no-op)
//   - threshold must be within [0,1]
func ValidateSearchParams(topK int, threshold float64) error {
	if topK < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopK, topK)
	}
	if threshold < 0 || threshold > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidThreshold, threshold)
	}
	return nil
}

// ValidateChunk validates a DocumentChunk before indexing.
//
// Validation rules:
//   - Text must not be empty
//   - Metadata.KnowledgeID must be set, it is the only bulk-delete filter
func ValidateChunk(chunk *DocumentChunk) error {
	if chunk == nil {
		return fmt.Errorf("chunk is nil")
	}
	if chunk.Text == "" {
		return ErrEmptyContent
	}
	if chunk.Metadata.KnowledgeID == 0 {
		return ErrMissingKnowledgeID
	}
	return nil
}
