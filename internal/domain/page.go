package domain

import (
	"time"

	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/id"
)

// Page is one scrapbook page ("memory"): up to five photos, a date, and an
// optional category reference.
//
// Category references the owning book's categories by name. The reference is
// advisory - nothing stops a page from outliving its category, but category
// mutations on Book keep references consistent (rename rewrites, remove
// clears).
type Page struct {
	ID       string    `json:"id"`
	Photos   []Photo   `json:"photos"`
	Date     time.Time `json:"date"`
	Category string    `json:"category,omitempty"`
}

// Photo is an embedded or linked image plus two bounded captions and an
// optional freeform position on the page.
type Photo struct {
	ID           string    `json:"id"`
	Image        string    `json:"image"`
	InnerCaption string    `json:"innerCaption"`
	OuterCaption string    `json:"outerCaption"`
	BlurHash     string    `json:"blurHash,omitempty"`
	Position     *Position `json:"position,omitempty"`
}

// Position is a freeform photo offset in percent of the page dimensions.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewPage creates an empty page with a generated ID, dated now.
func NewPage(category string) (*Page, error) {
	pageID, err := id.Generate("page")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate page ID")
	}
	return &Page{
		ID:       pageID,
		Photos:   []Photo{},
		Date:     time.Now().UTC(),
		Category: category,
	}, nil
}

// NewPhoto creates a photo with a generated ID.
func NewPhoto(image, innerCaption, outerCaption string) (*Photo, error) {
	photoID, err := id.Generate("photo")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate photo ID")
	}
	return &Photo{
		ID:           photoID,
		Image:        image,
		InnerCaption: innerCaption,
		OuterCaption: outerCaption,
	}, nil
}

// AddPhoto appends a photo, rejecting the sixth.
func (p *Page) AddPhoto(photo Photo) error {
	if len(p.Photos) >= MaxPhotosPerPage {
		return ErrPageFull
	}
	p.Photos = append(p.Photos, photo)
	return nil
}

// FindPhoto returns the photo with the given ID, or nil.
func (p *Page) FindPhoto(photoID string) *Photo {
	for i := range p.Photos {
		if p.Photos[i].ID == photoID {
			return &p.Photos[i]
		}
	}
	return nil
}

// RemovePhoto removes a photo by ID. Callers wanting the empty-page cascade
// should go through Book.RemovePhoto instead.
func (p *Page) RemovePhoto(photoID string) error {
	for i := range p.Photos {
		if p.Photos[i].ID == photoID {
			p.Photos = append(p.Photos[:i], p.Photos[i+1:]...)
			return nil
		}
	}
	return ErrPhotoNotFound
}

// IsFull reports whether the page has reached its photo capacity.
func (p *Page) IsFull() bool {
	return len(p.Photos) >= MaxPhotosPerPage
}
