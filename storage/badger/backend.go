package badger

import (
	"fmt"
	"log/slog"
	"os"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/timshannon/badgerhold/v4"
)

// Backend manages the shared BadgerDB store used by the repositories in this
// package. Values are encoded and queried through badgerhold.
type Backend struct {
	store  *badgerhold.Store
	logger *slog.Logger
}

// OpenBackend opens (or creates) a BadgerDB database at path.
// When inMemory is true, path is ignored and nothing touches disk; this mode
// is intended for tests.
func OpenBackend(path string, inMemory bool) (*Backend, error) {
	options := badgerhold.DefaultOptions

	if inMemory {
		options.Options = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		options.Options = badgerdb.DefaultOptions(path)
	}
	options.Logger = nil // use slog instead of badger's default logger

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}

	return &Backend{
		store:  store,
		logger: slog.Default().With("component", "badger-backend"),
	}, nil
}

// Store returns the underlying badgerhold store.
func (b *Backend) Store() *badgerhold.Store {
	return b.store
}

// Close closes the database.
func (b *Backend) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}
