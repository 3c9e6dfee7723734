package badger

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/storage"
	"github.com/timshannon/badgerhold/v4"
)

// blobRecord is the stored form of an uploaded file.
type blobRecord struct {
	Key       string `badgerhold:"key"`
	Filename  string
	Category  string
	OwnerID   core.ID
	Data      []byte
	CreatedAt time.Time
}

// BlobStore implements storage.BlobStore on BadgerDB. It keeps uploaded
// files inside the same database as the knowledge records, which is enough
// for single-node deployments; cloud object storage can replace it behind
// the same interface.
type BlobStore struct {
	backend *Backend
	logger  *slog.Logger
}

// NewBlobStore creates a blob store on an open backend.
//
// Returns storage.BlobStore interface to enforce abstraction.
func NewBlobStore(backend *Backend) (storage.BlobStore, error) {
	if backend == nil {
		return nil, storage.ErrBackendRequired
	}
	return &BlobStore{
		backend: backend,
		logger:  slog.Default().With("component", "blob-store"),
	}, nil
}

// Upload stores the bytes read from r under a generated key.
// Key format: category/ownerId/uuid-filename
func (s *BlobStore) Upload(ctx context.Context, r io.Reader, filename, category string, ownerID core.ID) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	key := fmt.Sprintf("%s/%d/%s-%s", category, ownerID, uuid.NewString(), filename)
	record := &blobRecord{
		Key:       key,
		Filename:  filename,
		Category:  category,
		OwnerID:   ownerID,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.backend.Store().Upsert(key, record); err != nil {
		return "", err
	}

	s.logger.Debug("stored blob", "key", key, "bytes", len(data))
	return key, nil
}

// Download opens a byte stream for the given blob key.
func (s *BlobStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	var record blobRecord
	if err := s.backend.Store().Get(key, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(record.Data)), nil
}

// Delete removes the blob under the key.
func (s *BlobStore) Delete(ctx context.Context, key string) error {
	if err := s.backend.Store().Delete(key, &blobRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Close releases store resources. The shared backend is closed separately
// by its owner.
func (s *BlobStore) Close() error {
	return nil
}
