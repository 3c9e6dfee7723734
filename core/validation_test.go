package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMessage_Valid(t *testing.T) {
	msg := &Message{Role: RoleUser, Content: "how do I configure X?"}
	require.NoError(t, ValidateMessage(msg))
}

func TestValidateMessage_Nil(t *testing.T) {
	err := ValidateMessage(nil)
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestValidateMessage_EmptyContent(t *testing.T) {
	msg := &Message{Role: RoleAssistant, Content: ""}
	err := ValidateMessage(msg)
	assert.ErrorIs(t, err, ErrInvalidMessage)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestValidateMessage_UnknownRole(t *testing.T) {
	msg := &Message{Role: Role("narrator"), Content: "hello"}
	err := ValidateMessage(msg)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestValidateSearchParams(t *testing.T) {
	tests := []struct {
		name      string
		topK      int
		threshold float64
		wantErr   error
	}{
		{"valid", 5, 0.7, nil},
		{"zero topK is valid", 0, 0.5, nil},
		{"boundary thresholds", 3, 0.0, nil},
		{"threshold one", 3, 1.0, nil},
		{"negative topK", -1, 0.5, ErrInvalidTopK},
		{"threshold above one", 5, 1.1, ErrInvalidThreshold},
		{"negative threshold", 5, -0.1, ErrInvalidThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSearchParams(tt.topK, tt.threshold)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateChunk_MissingKnowledgeID(t *testing.T) {
	chunk := &DocumentChunk{Text: "orphan text"}
	assert.ErrorIs(t, ValidateChunk(chunk), ErrMissingKnowledgeID)
}

func TestValidateChunk_EmptyText(t *testing.T) {
	chunk := &DocumentChunk{Metadata: ChunkMetadata{KnowledgeID: 1}}
	assert.ErrorIs(t, ValidateChunk(chunk), ErrEmptyContent)
}
