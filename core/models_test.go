package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDFromContent_Deterministic(t *testing.T) {
	id1 := IDFromContent("the same chunk text")
	id2 := IDFromContent("the same chunk text")
	assert.Equal(t, id1, id2)
}

func TestIDFromContent_DistinctContent(t *testing.T) {
	id1 := IDFromContent("first chunk")
	id2 := IDFromContent("second chunk")
	assert.NotEqual(t, id1, id2)
}

func TestNewDocumentChunk(t *testing.T) {
	meta := ChunkMetadata{KnowledgeID: 5, SpaceID: 2, Source: "guide.txt", BlobKey: "docs/2/guide.txt"}
	chunk := NewDocumentChunk("configure X by editing the config file", meta)

	assert.Equal(t, IDFromContent("configure X by editing the config file"), chunk.ID)
	assert.Equal(t, meta, chunk.Metadata)
	require.NoError(t, ValidateChunk(&chunk))
}

func TestJobState_Terminal(t *testing.T) {
	tests := []struct {
		state    JobState
		terminal bool
	}{
		{JobPending, false},
		{JobRunning, false},
		{JobDone, true},
		{JobFailed, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.terminal, tt.state.Terminal(), "state %s", tt.state)
	}
}
