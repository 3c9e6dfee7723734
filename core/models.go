package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// Knowledge records receive sequence-assigned IDs from storage; document
// chunks receive deterministic content-based IDs.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b
// hashing. Identical content always produces the same ID, which makes chunk
// writes idempotent.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Role identifies the author of a conversation message.
type Role string

const (
	// RoleSystem marks instructional messages injected by the orchestrator.
	RoleSystem Role = "system"
	// RoleUser marks messages authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks answers produced by the language model.
	RoleAssistant Role = "assistant"
)

// Message is a single entry in a conversation history.
// Messages are immutable once appended and their order is significant.
type Message struct {
	Role      Role
	Content   string
	Timestamp time.Time
}

// KnowledgeType categorizes how a knowledge record's content was produced.
type KnowledgeType string

const (
	// DocUnstructured is an uploaded free-form document (txt, html, md...).
	DocUnstructured KnowledgeType = "DOC_UNSTRUCTURED"
	// DocStructured is an uploaded document with known structure.
	DocStructured KnowledgeType = "DOC_STRUCTURED"
	// ManualStructured is manually authored markdown content.
	ManualStructured KnowledgeType = "MANUAL_STRUCTURED"
)

// JobState is the lifecycle state of a per-knowledge parse job.
type JobState string

const (
	// JobPending means the job exists but processing has not begun.
	JobPending JobState = "PENDING"
	// JobRunning means extraction, chunking and vectorization are in flight.
	JobRunning JobState = "RUNNING"
	// JobDone is the terminal success state.
	JobDone JobState = "DONE"
	// JobFailed is the terminal failure state.
	JobFailed JobState = "FAILED"
)

// Terminal reports whether the state ends a processing run.
// Terminal states persist until a fresh submission restarts the cycle.
func (s JobState) Terminal() bool {
	return s == JobDone || s == JobFailed
}

// KnowledgeRecord is the relational view of a knowledge entry.
// Chunk-level content lives in the vector index; the record carries the
// source metadata and the last observed parse-job state.
type KnowledgeRecord struct {
	ID        ID `badgerhold:"key"`
	SpaceID   ID
	Title     string
	Type      KnowledgeType
	Content   string // manually authored markdown, empty for uploads
	ParentID  ID     // 0 = root
	BlobKey   string // object-store key of the uploaded source, empty for manual entries
	ParseJob  JobState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChunkMetadata travels with every indexed chunk and is the only handle for
// scoped retrieval and bulk deletion. KnowledgeID is never zero for a stored
// chunk.
type ChunkMetadata struct {
	KnowledgeID ID
	SpaceID     ID
	Source      string // original filename, or "manual" for authored entries
	BlobKey     string
}

// DocumentChunk is a bounded-size span of extracted text plus metadata.
// Chunks are write-once; they are deleted in bulk by knowledge ID and never
// individually mutated.
type DocumentChunk struct {
	ID       ID
	Text     string
	Metadata ChunkMetadata
}

// NewDocumentChunk builds a chunk with a content-derived ID.
func NewDocumentChunk(text string, meta ChunkMetadata) DocumentChunk {
	return DocumentChunk{
		ID:       IDFromContent(text),
		Text:     text,
		Metadata: meta,
	}
}

// ScoredChunk is a chunk paired with its similarity score from a vector
// query. Scores are in [0,1], higher is more similar.
type ScoredChunk struct {
	Chunk DocumentChunk
	Score float64
}

// SearchResult groups the surviving chunks of one knowledge record for a
// query. Chunks are ordered by descending score. Ephemeral, computed per
// query, never persisted.
type SearchResult struct {
	KnowledgeID ID
	Title       string
	Type        KnowledgeType
	Chunks      []ScoredChunk
	AvgScore    float64
}
