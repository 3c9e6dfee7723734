package storage

import (
	"context"
	"io"

	"github.com/lorekeep/lorekeep/core"
)

// BlobStore stores and retrieves raw uploaded files.
// Implementations must be thread-safe and support concurrent access.
type BlobStore interface {
	// Upload stores the bytes read from r and returns the generated blob
	// key. Keys follow the "category/ownerId/uuid-filename" convention.
	Upload(ctx context.Context, r io.Reader, filename, category string, ownerID core.ID) (string, error)

	// Download opens a byte stream for the given blob key.
	// Returns ErrNotFound if no blob exists under the key.
	// The caller owns the returned stream and must close it.
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes the blob under the key. Deleting an absent key is not
	// an error.
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases resources.
	Close() error
}

// KnowledgeRepository provides CRUD operations for knowledge records.
// Implementations must be thread-safe and support concurrent access.
type KnowledgeRepository interface {
	// Create adds a knowledge record. For records with ID=0, generates a new
	// ID from sequence and sets CreatedAt. Returns the stored record.
	Create(ctx context.Context, record *core.KnowledgeRecord) (*core.KnowledgeRecord, error)

	// Get retrieves a knowledge record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Get(ctx context.Context, id core.ID) (*core.KnowledgeRecord, error)

	// SpaceIDFor returns the owning space of a knowledge record.
	// Returns ErrNotFound if the record doesn't exist.
	SpaceIDFor(ctx context.Context, id core.ID) (core.ID, error)

	// Update replaces a record's mutable fields and bumps UpdatedAt.
	// Returns ErrNotFound if the record doesn't exist.
	Update(ctx context.Context, record *core.KnowledgeRecord) error

	// UpdateParseJob mirrors a parse-job state onto the record so listings
	// can show it without consulting the job tracker.
	// Returns ErrNotFound if the record doesn't exist.
	UpdateParseJob(ctx context.Context, id core.ID, state core.JobState) error

	// UpdateBlobKey points the record at a newly uploaded source file.
	// Returns ErrNotFound if the record doesn't exist.
	UpdateBlobKey(ctx context.Context, id core.ID, blobKey string) error

	// Delete removes a record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	Delete(ctx context.Context, id core.ID) error

	// ListBySpace returns all records of a space ordered by ID.
	ListBySpace(ctx context.Context, spaceID core.ID) ([]*core.KnowledgeRecord, error)

	// Close closes the repository and releases resources.
	Close() error
}

// ChunkFilter restricts vector-index operations to a metadata scope.
// Zero values mean "no restriction" for the corresponding field.
type ChunkFilter struct {
	// SpaceID restricts to chunks owned by one space. 0 = any space.
	SpaceID core.ID

	// KnowledgeIDs restricts to chunks owned by the listed knowledge
	// records. nil or empty = any knowledge.
	KnowledgeIDs []core.ID
}

// Matches reports whether chunk metadata falls inside the filter scope.
func (f ChunkFilter) Matches(meta core.ChunkMetadata) bool {
	if f.SpaceID != 0 && meta.SpaceID != f.SpaceID {
		return false
	}
	if len(f.KnowledgeIDs) > 0 {
		found := false
		for _, id := range f.KnowledgeIDs {
			if meta.KnowledgeID == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// VectorIndex is the semantic index over document chunks.
// Implementations must be thread-safe and support concurrent access.
type VectorIndex interface {
	// Add embeds and indexes chunks in one batch.
	// Adding a chunk whose content ID already exists overwrites it.
	Add(ctx context.Context, chunks []core.DocumentChunk) error

	// Delete removes every chunk whose metadata matches the filter.
	// Deleting with a filter that matches nothing is not an error.
	Delete(ctx context.Context, filter ChunkFilter) error

	// SimilaritySearch embeds the query and returns up to topK chunks inside
	// the filter scope, ordered by descending similarity score in [0,1].
	// An empty result is a valid, common outcome.
	SimilaritySearch(ctx context.Context, query string, filter ChunkFilter, topK int) ([]core.ScoredChunk, error)
}
