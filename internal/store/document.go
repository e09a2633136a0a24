// Package store persists each user's scrapbook collection as a single
// document.
//
// The whole collection round-trips as one JSON document per user;
// concurrent writers are resolved last-write-wins at the document level.
package store

import (
	"time"

	"github.com/keepsakeapp/keepsake/internal/domain"
)

// MaxDocumentBytes is the serialized-size ceiling for a user's document.
const MaxDocumentBytes = 1 << 20 // 1 MiB

// Document is the persisted shape of a user's entire scrapbook collection.
type Document struct {
	Books     []domain.Book `json:"books"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
