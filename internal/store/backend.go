package store

import (
	"context"

	"github.com/keepsakeapp/keepsake/internal/errors"
)

// ErrDocNotFound is returned by backends when a user has no document yet.
// Callers treat it as "new user", not as a failure.
var ErrDocNotFound = errors.NotFound("document not found")

// Backend persists user documents. Implementations are whole-document:
// SaveDocument replaces whatever was stored before (last write wins).
type Backend interface {
	// LoadDocument returns the user's document, or ErrDocNotFound.
	LoadDocument(ctx context.Context, userID string) (*Document, error)

	// SaveDocument replaces the user's document.
	SaveDocument(ctx context.Context, userID string, doc *Document) error

	// Close releases backend resources.
	Close() error
}
