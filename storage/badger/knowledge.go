package badger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/storage"
	"github.com/timshannon/badgerhold/v4"
)

// KnowledgeRepository implements storage.KnowledgeRepository on BadgerDB.
type KnowledgeRepository struct {
	backend *Backend
	logger  *slog.Logger
}

// NewKnowledgeRepository creates a knowledge repository on an open backend.
//
// Returns storage.KnowledgeRepository interface to enforce abstraction.
func NewKnowledgeRepository(backend *Backend) (storage.KnowledgeRepository, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	return &KnowledgeRepository{
		backend: backend,
		logger:  slog.Default().With("component", "knowledge-repository"),
	}, nil
}

// Create adds a knowledge record, assigning a sequence ID when ID is zero.
func (r *KnowledgeRepository) Create(ctx context.Context, record *core.KnowledgeRecord) (*core.KnowledgeRecord, error) {
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	if record.ParseJob == "" {
		record.ParseJob = core.JobPending
	}

	if record.ID == 0 {
		if err := r.backend.Store().Insert(badgerhold.NextSequence(), record); err != nil {
			return nil, err
		}
	} else {
		if err := r.backend.Store().Insert(record.ID, record); err != nil {
			return nil, err
		}
	}

	r.logger.Debug("created knowledge record", "id", record.ID, "spaceId", record.SpaceID)
	return record, nil
}

// Get retrieves a knowledge record by ID.
func (r *KnowledgeRepository) Get(ctx context.Context, id core.ID) (*core.KnowledgeRecord, error) {
	var record core.KnowledgeRecord
	if err := r.backend.Store().Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// SpaceIDFor returns the owning space of a knowledge record.
func (r *KnowledgeRepository) SpaceIDFor(ctx context.Context, id core.ID) (core.ID, error) {
	record, err := r.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return record.SpaceID, nil
}

// Update replaces a record's fields and bumps UpdatedAt.
func (r *KnowledgeRepository) Update(ctx context.Context, record *core.KnowledgeRecord) error {
	record.UpdatedAt = time.Now().UTC()
	if err := r.backend.Store().Update(record.ID, record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return storage.ErrNotFound
		}
		return err
	}
	return nil
}

// UpdateParseJob mirrors a parse-job state onto the stored record.
func (r *KnowledgeRepository) UpdateParseJob(ctx context.Context, id core.ID, state core.JobState) error {
	record, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	record.ParseJob = state
	return r.Update(ctx, record)
}

// UpdateBlobKey points the record at a newly uploaded source file.
func (r *KnowledgeRepository) UpdateBlobKey(ctx context.Context, id core.ID, blobKey string) error {
	record, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	record.BlobKey = blobKey
	return r.Update(ctx, record)
}

// Delete removes a record by ID.
func (r *KnowledgeRepository) Delete(ctx context.Context, id core.ID) error {
	if err := r.backend.Store().Delete(id, &core.KnowledgeRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return storage.ErrNotFound
		}
		return err
	}
	r.logger.Debug("deleted knowledge record", "id", id)
	return nil
}

// ListBySpace returns all records of a space ordered by ID.
func (r *KnowledgeRepository) ListBySpace(ctx context.Context, spaceID core.ID) ([]*core.KnowledgeRecord, error) {
	var records []core.KnowledgeRecord
	query := badgerhold.Where("SpaceID").Eq(spaceID).SortBy("ID")
	if err := r.backend.Store().Find(&records, query); err != nil {
		return nil, err
	}

	result := make([]*core.KnowledgeRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

// Close releases repository resources. The shared backend is closed
// separately by its owner.
func (r *KnowledgeRepository) Close() error {
	return nil
}
