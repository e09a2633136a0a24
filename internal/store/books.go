package store

import (
	"context"
	"encoding/json/v2"
	"log/slog"
	"strings"
	"time"

	"github.com/keepsakeapp/keepsake/internal/domain"
	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/validation"
)

// maxImageSizeMB is the per-photo ceiling for embedded images, estimated
// from the base64 payload without decoding.
const maxImageSizeMB = 5

// Books saves and loads a user's scrapbook collection through a Backend.
//
// Save is all-or-nothing: every book is validated and sanitized before
// anything is written, so one bad caption never wipes or partially updates
// the stored document.
type Books struct {
	backend Backend
	logger  *slog.Logger
}

// NewBooks creates a Books store on the given backend.
func NewBooks(backend Backend, logger *slog.Logger) *Books {
	return &Books{
		backend: backend,
		logger:  logger,
	}
}

// Load returns the user's books. A user with no stored document gets an
// empty collection, not an error.
func (b *Books) Load(ctx context.Context, userID string) ([]domain.Book, error) {
	if userID == "" {
		return nil, errors.Unauthorized("no user signed in")
	}

	doc, err := b.backend.LoadDocument(ctx, userID)
	if errors.Is(err, ErrDocNotFound) {
		b.logger.Debug("no stored document, starting empty", "user_id", userID)
		return []domain.Book{}, nil
	}
	if err != nil {
		return nil, err
	}

	if doc.Books == nil {
		return []domain.Book{}, nil
	}

	b.logger.Debug("loaded collection", "user_id", userID, "books", len(doc.Books))
	return doc.Books, nil
}

// Save validates and sanitizes the whole collection, enforces the document
// size ceiling, and replaces the stored document. On any validation failure
// nothing is written.
func (b *Books) Save(ctx context.Context, userID string, books []domain.Book) error {
	if userID == "" {
		return errors.Unauthorized("no user signed in")
	}

	sanitized := make([]domain.Book, len(books))
	for i := range books {
		book, err := sanitizeBook(&books[i])
		if err != nil {
			return errors.Wrapf(err, errors.CodeValidation, "book %q", books[i].Name)
		}
		sanitized[i] = *book
	}

	doc := &Document{
		Books:     sanitized,
		UpdatedAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode document")
	}
	if len(payload) > MaxDocumentBytes {
		return errors.SizeLimitf("document is %d bytes, maximum is %d", len(payload), MaxDocumentBytes)
	}

	if err := b.backend.SaveDocument(ctx, userID, doc); err != nil {
		return err
	}

	b.logger.Debug("saved collection",
		"user_id", userID,
		"books", len(sanitized),
		"bytes", len(payload),
	)
	return nil
}

// sanitizeBook returns a deep, sanitized copy of book, validating every
// bounded field. The input is never mutated.
func sanitizeBook(src *domain.Book) (*domain.Book, error) {
	book := domain.Book{
		ID:        src.ID,
		Name:      validation.SanitizeText(src.Name),
		Color:     src.Color,
		CreatedAt: src.CreatedAt,
	}

	if !validation.ValidateBookName(book.Name) {
		return nil, errors.Validationf("book name must be 1-%d characters", validation.MaxBookNameLength)
	}

	if src.CoverDesign != nil {
		if !src.CoverDesign.Pattern.Valid() {
			return nil, errors.Validationf("unknown cover pattern %q", src.CoverDesign.Pattern)
		}
		cover := *src.CoverDesign
		book.CoverDesign = &cover
	}

	if len(src.Memories) > domain.MaxPagesPerBook {
		return nil, domain.ErrBookFull
	}

	for i := range src.Categories {
		category := domain.Category{
			Name:  validation.SanitizeText(src.Categories[i].Name),
			Color: src.Categories[i].Color,
		}
		if !validation.ValidateCategory(category.Name) {
			return nil, errors.Validationf("category name must be 1-%d characters", validation.MaxCategoryLength)
		}
		book.Categories = append(book.Categories, category)
	}

	for i := range src.Dividers {
		book.Dividers = append(book.Dividers, domain.Divider{
			Label: validation.SanitizeText(src.Dividers[i].Label),
			Color: src.Dividers[i].Color,
		})
	}

	book.Memories = make([]domain.Page, 0, len(src.Memories))
	for i := range src.Memories {
		page, err := sanitizePage(&src.Memories[i])
		if err != nil {
			return nil, err
		}
		book.Memories = append(book.Memories, *page)
	}

	return &book, nil
}

// sanitizePage deep-copies and validates a single page.
func sanitizePage(src *domain.Page) (*domain.Page, error) {
	page := domain.Page{
		ID:       src.ID,
		Date:     src.Date,
		Category: validation.SanitizeText(src.Category),
	}
	if page.Category != "" && !validation.ValidateCategory(page.Category) {
		return nil, errors.Validationf("category name must be 1-%d characters", validation.MaxCategoryLength)
	}

	if len(src.Photos) > domain.MaxPhotosPerPage {
		return nil, domain.ErrPageFull
	}

	page.Photos = make([]domain.Photo, 0, len(src.Photos))
	for i := range src.Photos {
		photo, err := sanitizePhoto(&src.Photos[i])
		if err != nil {
			return nil, err
		}
		page.Photos = append(page.Photos, *photo)
	}

	return &page, nil
}

// sanitizePhoto deep-copies and validates a single photo.
func sanitizePhoto(src *domain.Photo) (*domain.Photo, error) {
	photo := domain.Photo{
		ID:           src.ID,
		Image:        src.Image,
		InnerCaption: validation.SanitizeText(src.InnerCaption),
		OuterCaption: validation.SanitizeText(src.OuterCaption),
		BlurHash:     src.BlurHash,
	}

	if photo.Image == "" {
		return nil, errors.Validation("photo has no image")
	}
	if encoded, ok := strings.CutPrefix(photo.Image, "data:"); ok {
		if _, payload, found := strings.Cut(encoded, ","); found {
			if !validation.ValidateImageSize(payload, maxImageSizeMB) {
				return nil, errors.FileTooLargef("photo exceeds %dMB", maxImageSizeMB)
			}
		}
	}

	for _, caption := range []string{photo.InnerCaption, photo.OuterCaption} {
		if !validation.ValidateCaptionWords(caption) {
			return nil, errors.Validationf("caption must be at most %d words", validation.MaxCaptionWords)
		}
		if !validation.ValidateCaption(caption) {
			return nil, errors.Validationf("caption must be at most %d characters", validation.MaxCaptionLength)
		}
	}

	if src.Position != nil {
		position := *src.Position
		photo.Position = &position
	}

	return &photo, nil
}
