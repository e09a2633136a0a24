// Package search provides full-text caption search using Bleve.
// Every photo in the collection is indexed with its captions, category, and
// owning book, so "that beach photo" is one query away.
package search

import (
	"github.com/keepsakeapp/keepsake/internal/domain"
)

// PhotoDocument is the indexed shape of a single photo.
type PhotoDocument struct {
	ID           string `json:"id"` // photo ID
	BookID       string `json:"book_id"`
	BookName     string `json:"book_name"`
	PageID       string `json:"page_id"`
	Category     string `json:"category"`
	InnerCaption string `json:"inner_caption"`
	OuterCaption string `json:"outer_caption"`
}

// ToMap converts the document to a map so field names match the mapping
// (lowercase with underscores).
func (d *PhotoDocument) ToMap() map[string]any {
	return map[string]any{
		"id":            d.ID,
		"book_id":       d.BookID,
		"book_name":     d.BookName,
		"page_id":       d.PageID,
		"category":      d.Category,
		"inner_caption": d.InnerCaption,
		"outer_caption": d.OuterCaption,
	}
}

// DocumentsForBook flattens a book into one document per photo.
func DocumentsForBook(book *domain.Book) []*PhotoDocument {
	var docs []*PhotoDocument
	for i := range book.Memories {
		page := &book.Memories[i]
		for j := range page.Photos {
			photo := &page.Photos[j]
			docs = append(docs, &PhotoDocument{
				ID:           photo.ID,
				BookID:       book.ID,
				BookName:     book.Name,
				PageID:       page.ID,
				Category:     page.Category,
				InnerCaption: photo.InnerCaption,
				OuterCaption: photo.OuterCaption,
			})
		}
	}
	return docs
}
