package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record or blob doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrBackendRequired is returned when a repository is constructed
	// without an open backend.
	ErrBackendRequired = errors.New("backend required")

	// ErrEmbedderRequired is returned when a vector index is constructed
	// without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")
)
