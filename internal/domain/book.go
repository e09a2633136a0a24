// Package domain contains the core business entities and domain logic for
// Keepsake scrapbooks.
//
// JSON tags are lowerCamel to match the persisted user document shape; the
// whole collection round-trips through the document store as-is.
package domain

import (
	"time"

	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/id"
	"github.com/keepsakeapp/keepsake/internal/validation"
)

// Collection limits. A book never holds more than MaxPagesPerBook pages and
// a page never holds more than MaxPhotosPerPage photos.
const (
	MaxPagesPerBook  = 10
	MaxPhotosPerPage = 5
)

// Sentinel errors for capacity and lookup failures.
var (
	ErrBookFull      = errors.Validation("book is full: maximum 10 pages per book")
	ErrPageFull      = errors.Validation("page is full: maximum 5 photos per page")
	ErrPageNotFound  = errors.NotFound("page not found")
	ErrPhotoNotFound = errors.NotFound("photo not found")
)

// Book is a user-created scrapbook: a named, colored collection of up to ten
// pages with freeform categories and dividers.
type Book struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Color       string       `json:"color"`
	CoverDesign *CoverDesign `json:"coverDesign,omitempty"`
	Categories  []Category   `json:"categories,omitempty"`
	Dividers    []Divider    `json:"dividers,omitempty"`
	Memories    []Page       `json:"memories"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// Category is a user-defined label used to filter pages within a book.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Divider is a visual separator between runs of pages.
type Divider struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

// NewBook creates an empty book with a generated ID.
func NewBook(name, color string) (*Book, error) {
	bookID, err := id.Generate("book")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate book ID")
	}
	return &Book{
		ID:        bookID,
		Name:      name,
		Color:     color,
		Memories:  []Page{},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AddPage appends a page, rejecting the eleventh.
func (b *Book) AddPage(page Page) error {
	if len(b.Memories) >= MaxPagesPerBook {
		return ErrBookFull
	}
	b.Memories = append(b.Memories, page)
	return nil
}

// FindPage returns the page with the given ID, or nil.
func (b *Book) FindPage(pageID string) *Page {
	for i := range b.Memories {
		if b.Memories[i].ID == pageID {
			return &b.Memories[i]
		}
	}
	return nil
}

// RemovePage removes a page by ID. Returns ErrPageNotFound if absent.
func (b *Book) RemovePage(pageID string) error {
	for i := range b.Memories {
		if b.Memories[i].ID == pageID {
			b.Memories = append(b.Memories[:i], b.Memories[i+1:]...)
			return nil
		}
	}
	return ErrPageNotFound
}

// RemovePhoto removes a photo from a page. Removing the last photo of a page
// removes the page itself.
func (b *Book) RemovePhoto(pageID, photoID string) error {
	page := b.FindPage(pageID)
	if page == nil {
		return ErrPageNotFound
	}
	if err := page.RemovePhoto(photoID); err != nil {
		return err
	}
	if len(page.Photos) == 0 {
		return b.RemovePage(pageID)
	}
	return nil
}

// FindCategory returns the category matching name (case-folded), or nil.
func (b *Book) FindCategory(name string) *Category {
	normalized := validation.NormalizeCategory(name)
	for i := range b.Categories {
		if validation.NormalizeCategory(b.Categories[i].Name) == normalized {
			return &b.Categories[i]
		}
	}
	return nil
}

// AddCategory appends a category. Duplicate names (case-folded) are rejected.
func (b *Book) AddCategory(category Category) error {
	if b.FindCategory(category.Name) != nil {
		return errors.Validationf("category %q already exists", category.Name)
	}
	b.Categories = append(b.Categories, category)
	return nil
}

// RenameCategory renames a category and rewrites every page reference to it.
func (b *Book) RenameCategory(oldName, newName string) error {
	category := b.FindCategory(oldName)
	if category == nil {
		return errors.NotFoundf("category %q not found", oldName)
	}
	if existing := b.FindCategory(newName); existing != nil && existing != category {
		return errors.Validationf("category %q already exists", newName)
	}

	normalized := validation.NormalizeCategory(oldName)
	for i := range b.Memories {
		if b.Memories[i].Category != "" && validation.NormalizeCategory(b.Memories[i].Category) == normalized {
			b.Memories[i].Category = newName
		}
	}
	category.Name = newName
	return nil
}

// RemoveCategory removes a category and clears the reference on every page
// that pointed at it, so no page is left referencing a vanished name.
func (b *Book) RemoveCategory(name string) error {
	normalized := validation.NormalizeCategory(name)
	for i := range b.Categories {
		if validation.NormalizeCategory(b.Categories[i].Name) == normalized {
			b.Categories = append(b.Categories[:i], b.Categories[i+1:]...)

			for j := range b.Memories {
				if validation.NormalizeCategory(b.Memories[j].Category) == normalized {
					b.Memories[j].Category = ""
				}
			}
			return nil
		}
	}
	return errors.NotFoundf("category %q not found", name)
}

// PagesInCategory returns the pages referencing the given category name,
// preserving order. The reference is advisory: pages whose category no
// longer exists simply never match.
func (b *Book) PagesInCategory(name string) []Page {
	normalized := validation.NormalizeCategory(name)
	var pages []Page
	for _, page := range b.Memories {
		if page.Category != "" && validation.NormalizeCategory(page.Category) == normalized {
			pages = append(pages, page)
		}
	}
	return pages
}

// AddDivider appends a divider.
func (b *Book) AddDivider(divider Divider) {
	b.Dividers = append(b.Dividers, divider)
}

// PhotoCount returns the total number of photos across all pages.
func (b *Book) PhotoCount() int {
	count := 0
	for _, page := range b.Memories {
		count += len(page.Photos)
	}
	return count
}
