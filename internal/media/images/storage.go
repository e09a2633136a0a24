package images

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"

	"github.com/keepsakeapp/keepsake/internal/errors"
)

// Storage keeps the original bytes of uploaded photos on disk, keyed by
// photo ID. Originals let the app re-derive compressed copies later without
// a second upload. Safe for concurrent use.
type Storage struct {
	dir string
	mu  sync.RWMutex
}

// NewStorage creates original storage under {basePath}/originals.
func NewStorage(basePath string) (*Storage, error) {
	if basePath == "" {
		return nil, errors.Validation("base path cannot be empty")
	}

	dir := filepath.Join(basePath, "originals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "create originals directory")
	}

	return &Storage{dir: dir}, nil
}

// Save stores the uploaded bytes for a photo, replacing any earlier copy.
func (s *Storage) Save(photoID string, data []byte) error {
	if photoID == "" {
		return errors.Validation("photo ID cannot be empty")
	}
	if len(data) == 0 {
		return errors.Validation("image data cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.WriteFile(s.Path(photoID), data, 0644); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "write original")
	}
	return nil
}

// Get returns the stored bytes for a photo.
func (s *Storage) Get(photoID string) ([]byte, error) {
	if photoID == "" {
		return nil, errors.Validation("photo ID cannot be empty")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(photoID))
	if os.IsNotExist(err) {
		return nil, errors.NotFoundf("no original for %s", photoID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "read original")
	}
	return data, nil
}

// Exists reports whether an original is stored for the photo.
func (s *Storage) Exists(photoID string) bool {
	if photoID == "" {
		return false
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(photoID))
	return err == nil
}

// Delete removes a photo's original. Deleting an absent original is a no-op.
func (s *Storage) Delete(photoID string) error {
	if photoID == "" {
		return errors.Validation("photo ID cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path(photoID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, errors.CodeInternal, "delete original")
	}
	return nil
}

// Hash returns the hex SHA-256 of a stored original, for deduplication and
// change detection.
func (s *Storage) Hash(photoID string) (string, error) {
	data, err := s.Get(photoID)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// Path returns the filesystem path of a photo's original.
func (s *Storage) Path(photoID string) string {
	return filepath.Join(s.dir, photoID)
}
