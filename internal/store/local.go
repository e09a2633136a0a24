package store

import (
	"context"
	"encoding/json/v2"
	stderrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/keepsakeapp/keepsake/internal/errors"
)

// docKeyPrefix namespaces user documents in the database.
const docKeyPrefix = "doc:"

// Local is a Backend backed by an embedded Badger database. It also exposes
// generic JSON key/value helpers so other components (account storage) can
// share the same database file.
type Local struct {
	db     *badger.DB
	logger *slog.Logger
}

// Compile-time interface check.
var _ Backend = (*Local)(nil)

// NewLocal opens (or creates) the Badger database at path.
func NewLocal(path string, logger *slog.Logger) (*Local, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return &Local{
		db:     db,
		logger: logger,
	}, nil
}

// Close gracefully closes the database.
func (l *Local) Close() error {
	if l.logger != nil {
		l.logger.Info("Closing database connection")
	}
	return l.db.Close()
}

// LoadDocument implements Backend.
func (l *Local) LoadDocument(_ context.Context, userID string) (*Document, error) {
	var doc Document
	err := l.GetJSON(docKeyPrefix+userID, &doc)
	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrDocNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDataIntegrity, "load document")
	}
	return &doc, nil
}

// SaveDocument implements Backend.
func (l *Local) SaveDocument(_ context.Context, userID string, doc *Document) error {
	if err := l.SetJSON(docKeyPrefix+userID, doc); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "save document")
	}
	return nil
}

// Generic helpers shared with other components using the same database.

// GetJSON retrieves a JSON value by key. Returns badger.ErrKeyNotFound when
// the key is absent.
func (l *Local) GetJSON(key string, dest any) error {
	return l.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, dest)
		})
	})
}

// SetJSON stores a JSON value by key.
func (l *Local) SetJSON(key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Delete removes a key from the database.
func (l *Local) Delete(key string) error {
	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// Exists checks if a key exists.
func (l *Local) Exists(key string) (bool, error) {
	err := l.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(key))
		return err
	})

	if stderrors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
