// Package service provides the business logic layer for managing scrapbooks,
// sessions, and synchronization.
package service

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/keepsakeapp/keepsake/internal/color"
	"github.com/keepsakeapp/keepsake/internal/domain"
	domainerrors "github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/media/images"
	"github.com/keepsakeapp/keepsake/internal/search"
	"github.com/keepsakeapp/keepsake/internal/store"
	booksync "github.com/keepsakeapp/keepsake/internal/sync"
	"github.com/keepsakeapp/keepsake/internal/validation"
)

// BookService orchestrates the in-memory collection: every mutation updates
// the working copy, schedules a debounced save, and keeps the search index
// in step. It owns the single source of truth the UI renders from.
type BookService struct {
	books     *store.Books
	scheduler *booksync.Scheduler
	index     *search.SearchIndex
	images    *images.Processor
	originals *images.Storage
	validator *validation.Validator
	logger    *slog.Logger

	mu         sync.RWMutex
	collection []domain.Book
	userID     string
	loaded     bool
}

// NewBookService creates a book service. The search index and originals
// storage may be nil when running without caption search or on-disk
// originals.
func NewBookService(
	books *store.Books,
	scheduler *booksync.Scheduler,
	index *search.SearchIndex,
	processor *images.Processor,
	originals *images.Storage,
	validator *validation.Validator,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		books:     books,
		scheduler: scheduler,
		index:     index,
		images:    processor,
		originals: originals,
		validator: validator,
		logger:    logger,
	}
}

// Request types. Field names match the JSON the UI sends.

// CreateBookRequest creates a new book.
type CreateBookRequest struct {
	Name  string `json:"name" validate:"required,max=1000"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// RenameBookRequest renames an existing book.
type RenameBookRequest struct {
	BookID string `json:"bookId" validate:"required"`
	Name   string `json:"name" validate:"required,max=1000"`
}

// UpdateCoverRequest replaces a book's cover design.
type UpdateCoverRequest struct {
	BookID          string `json:"bookId" validate:"required"`
	BackgroundColor string `json:"backgroundColor" validate:"required,hexcolor"`
	Pattern         string `json:"pattern" validate:"required"`
	TextColor       string `json:"textColor" validate:"required,hexcolor"`
}

// AddPhotoRequest adds a photo to a page.
type AddPhotoRequest struct {
	BookID       string `json:"bookId" validate:"required"`
	PageID       string `json:"pageId" validate:"required"`
	Image        string `json:"image" validate:"required"`
	InnerCaption string `json:"innerCaption"`
	OuterCaption string `json:"outerCaption"`
}

// UpdateCaptionsRequest rewrites a photo's captions.
type UpdateCaptionsRequest struct {
	BookID       string `json:"bookId" validate:"required"`
	PageID       string `json:"pageId" validate:"required"`
	PhotoID      string `json:"photoId" validate:"required"`
	InnerCaption string `json:"innerCaption"`
	OuterCaption string `json:"outerCaption"`
}

// SetUser switches the service to a new user (empty for signed out). The
// working copy resets and stays closed for saving until the next load.
func (s *BookService) SetUser(userID string) {
	s.mu.Lock()
	s.userID = userID
	s.collection = nil
	s.loaded = false
	s.mu.Unlock()

	s.scheduler.SetUser(userID)
}

// LoadCollection fetches the user's stored books and opens the save gate.
// A brand-new user gets an empty, saveable collection.
func (s *BookService) LoadCollection(ctx context.Context) ([]domain.Book, error) {
	s.mu.RLock()
	userID := s.userID
	s.mu.RUnlock()

	loaded, err := s.books.Load(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.collection = loaded
	s.loaded = true
	s.mu.Unlock()

	s.scheduler.MarkLoaded()

	if s.index != nil {
		if err := s.index.IndexBooks(ctx, loaded); err != nil {
			s.logger.Warn("failed to index collection", "error", err)
		}
	}

	s.logger.Info("collection loaded", "user_id", userID, "books", len(loaded))
	return cloneBooks(loaded), nil
}

// Books returns a snapshot of the working collection.
func (s *BookService) Books() []domain.Book {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneBooks(s.collection)
}

// CreateBook creates a book and schedules a save. With no color given the
// book gets a deterministic one derived from its ID.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	name := validation.SanitizeText(req.Name)
	if !validation.ValidateBookName(name) {
		return nil, domainerrors.Validationf("book name must be 1-%d characters", validation.MaxBookNameLength)
	}

	book, err := domain.NewBook(name, req.Color)
	if err != nil {
		return nil, err
	}
	if book.Color == "" {
		book.Color = color.ForBook(book.ID)
	}
	cover := color.DefaultCover()
	cover.BackgroundColor = book.Color
	book.CoverDesign = &cover

	s.mu.Lock()
	s.collection = append(s.collection, *book)
	s.mu.Unlock()

	s.logger.Info("book created", "book_id", book.ID, "name", name)
	s.afterMutation(ctx, book.ID)

	result := *book
	return &result, nil
}

// RenameBook renames a book.
func (s *BookService) RenameBook(ctx context.Context, req RenameBookRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	name := validation.SanitizeText(req.Name)
	if !validation.ValidateBookName(name) {
		return domainerrors.Validationf("book name must be 1-%d characters", validation.MaxBookNameLength)
	}

	err := s.withBook(req.BookID, func(book *domain.Book) error {
		book.Name = name
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, req.BookID)
	return nil
}

// UpdateCover replaces a book's cover design.
func (s *BookService) UpdateCover(ctx context.Context, req UpdateCoverRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	pattern := domain.Pattern(req.Pattern)
	if !pattern.Valid() {
		return domainerrors.Validationf("unknown cover pattern %q", req.Pattern)
	}

	err := s.withBook(req.BookID, func(book *domain.Book) error {
		book.CoverDesign = &domain.CoverDesign{
			BackgroundColor: req.BackgroundColor,
			Pattern:         pattern,
			TextColor:       req.TextColor,
		}
		book.Color = req.BackgroundColor
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, req.BookID)
	return nil
}

// DeleteBook removes a book from the collection, along with the stored
// originals of every photo in it.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	s.mu.Lock()
	found := false
	var removed []string
	for i := range s.collection {
		if s.collection[i].ID == bookID {
			for _, page := range s.collection[i].Memories {
				for j := range page.Photos {
					removed = append(removed, page.Photos[j].ID)
				}
			}
			s.collection = append(s.collection[:i], s.collection[i+1:]...)
			found = true
			break
		}
	}
	s.mu.Unlock()

	if !found {
		return domainerrors.NotFoundf("book %s not found", bookID)
	}

	s.deleteOriginals(removed...)

	if s.index != nil {
		if err := s.index.DeleteBook(ctx, bookID); err != nil {
			s.logger.Warn("failed to deindex book", "book_id", bookID, "error", err)
		}
	}

	s.logger.Info("book deleted", "book_id", bookID)
	s.notifyScheduler()
	return nil
}

// AddPage appends an empty page to a book.
func (s *BookService) AddPage(ctx context.Context, bookID, category string) (*domain.Page, error) {
	category = validation.SanitizeText(category)
	if category != "" && !validation.ValidateCategory(category) {
		return nil, domainerrors.Validationf("category name must be 1-%d characters", validation.MaxCategoryLength)
	}

	page, err := domain.NewPage(category)
	if err != nil {
		return nil, err
	}

	err = s.withBook(bookID, func(book *domain.Book) error {
		if category != "" && book.FindCategory(category) == nil {
			return domainerrors.NotFoundf("category %q not found", category)
		}
		return book.AddPage(*page)
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, bookID)
	return page, nil
}

// DeletePage removes a page from a book, along with the stored originals of
// its photos.
func (s *BookService) DeletePage(ctx context.Context, bookID, pageID string) error {
	var removed []string
	err := s.withBook(bookID, func(book *domain.Book) error {
		if page := book.FindPage(pageID); page != nil {
			for i := range page.Photos {
				removed = append(removed, page.Photos[i].ID)
			}
		}
		return book.RemovePage(pageID)
	})
	if err != nil {
		return err
	}

	s.deleteOriginals(removed...)
	s.afterMutation(ctx, bookID)
	return nil
}

// AddPhoto validates and adds a photo to a page. Embedded images get a
// BlurHash placeholder computed for instant page renders.
func (s *BookService) AddPhoto(ctx context.Context, req AddPhotoRequest) (*domain.Photo, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	inner := validation.SanitizeText(req.InnerCaption)
	outer := validation.SanitizeText(req.OuterCaption)
	if err := validateCaptions(inner, outer); err != nil {
		return nil, err
	}

	if err := s.images.ValidateDataURI(req.Image); err != nil {
		return nil, err
	}

	photo, err := domain.NewPhoto(req.Image, inner, outer)
	if err != nil {
		return nil, err
	}

	// BlurHash is best effort: a photo without a placeholder still renders.
	var raw []byte
	if strings.HasPrefix(req.Image, "data:") {
		if data, _, err := images.ParseDataURI(req.Image); err == nil {
			raw = data
			if hash, err := images.ComputeBlurHash(data); err == nil {
				photo.BlurHash = hash
			}
		}
	}

	err = s.withBook(req.BookID, func(book *domain.Book) error {
		page := book.FindPage(req.PageID)
		if page == nil {
			return domain.ErrPageNotFound
		}
		return page.AddPhoto(*photo)
	})
	if err != nil {
		return nil, err
	}

	// Keep the uploaded bytes on disk so a compressed copy can be re-derived
	// without a second upload. Remote URLs have no bytes to keep.
	if s.originals != nil && raw != nil {
		if err := s.originals.Save(photo.ID, raw); err != nil {
			s.logger.Warn("failed to store photo original", "photo_id", photo.ID, "error", err)
		}
	}

	s.afterMutation(ctx, req.BookID)
	return photo, nil
}

// UpdateCaptions rewrites a photo's captions.
func (s *BookService) UpdateCaptions(ctx context.Context, req UpdateCaptionsRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	inner := validation.SanitizeText(req.InnerCaption)
	outer := validation.SanitizeText(req.OuterCaption)
	if err := validateCaptions(inner, outer); err != nil {
		return err
	}

	err := s.withBook(req.BookID, func(book *domain.Book) error {
		page := book.FindPage(req.PageID)
		if page == nil {
			return domain.ErrPageNotFound
		}
		photo := page.FindPhoto(req.PhotoID)
		if photo == nil {
			return domain.ErrPhotoNotFound
		}
		photo.InnerCaption = inner
		photo.OuterCaption = outer
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, req.BookID)
	return nil
}

// MovePhoto records a photo's freeform position on its page.
func (s *BookService) MovePhoto(ctx context.Context, bookID, pageID, photoID string, x, y float64) error {
	err := s.withBook(bookID, func(book *domain.Book) error {
		page := book.FindPage(pageID)
		if page == nil {
			return domain.ErrPageNotFound
		}
		photo := page.FindPhoto(photoID)
		if photo == nil {
			return domain.ErrPhotoNotFound
		}
		photo.Position = &domain.Position{X: x, Y: y}
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, bookID)
	return nil
}

// DeletePhoto removes a photo and its stored original. Removing the last
// photo of a page removes the page as well.
func (s *BookService) DeletePhoto(ctx context.Context, bookID, pageID, photoID string) error {
	err := s.withBook(bookID, func(book *domain.Book) error {
		return book.RemovePhoto(pageID, photoID)
	})
	if err != nil {
		return err
	}

	s.deleteOriginals(photoID)
	s.afterMutation(ctx, bookID)
	return nil
}

// AddCategory adds a category to a book.
func (s *BookService) AddCategory(ctx context.Context, bookID string, category domain.Category) error {
	category.Name = validation.SanitizeText(category.Name)
	if !validation.ValidateCategory(category.Name) {
		return domainerrors.Validationf("category name must be 1-%d characters", validation.MaxCategoryLength)
	}

	err := s.withBook(bookID, func(book *domain.Book) error {
		return book.AddCategory(category)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, bookID)
	return nil
}

// RenameCategory renames a category and every page reference to it.
func (s *BookService) RenameCategory(ctx context.Context, bookID, oldName, newName string) error {
	newName = validation.SanitizeText(newName)
	if !validation.ValidateCategory(newName) {
		return domainerrors.Validationf("category name must be 1-%d characters", validation.MaxCategoryLength)
	}

	err := s.withBook(bookID, func(book *domain.Book) error {
		return book.RenameCategory(oldName, newName)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, bookID)
	return nil
}

// DeleteCategory removes a category, clearing the reference on every page
// that pointed at it.
func (s *BookService) DeleteCategory(ctx context.Context, bookID, name string) error {
	err := s.withBook(bookID, func(book *domain.Book) error {
		return book.RemoveCategory(name)
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, bookID)
	return nil
}

// AssignPageCategory points a page at an existing category ("" clears it).
func (s *BookService) AssignPageCategory(ctx context.Context, bookID, pageID, category string) error {
	err := s.withBook(bookID, func(book *domain.Book) error {
		if category != "" && book.FindCategory(category) == nil {
			return domainerrors.NotFoundf("category %q not found", category)
		}
		page := book.FindPage(pageID)
		if page == nil {
			return domain.ErrPageNotFound
		}
		page.Category = category
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, bookID)
	return nil
}

// AddDivider appends a divider to a book.
func (s *BookService) AddDivider(ctx context.Context, bookID string, divider domain.Divider) error {
	divider.Label = validation.SanitizeText(divider.Label)

	err := s.withBook(bookID, func(book *domain.Book) error {
		book.AddDivider(divider)
		return nil
	})
	if err != nil {
		return err
	}

	s.afterMutation(ctx, bookID)
	return nil
}

// SearchPhotos runs a caption search over the indexed collection.
func (s *BookService) SearchPhotos(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	if s.index == nil {
		return nil, domainerrors.Unsupported("caption search is not enabled")
	}
	return s.index.Search(ctx, params)
}

// Flush saves any pending changes immediately. Used on sign-out and
// shutdown.
func (s *BookService) Flush(ctx context.Context) error {
	return s.scheduler.Flush(ctx)
}

// withBook runs fn against the named book under the write lock.
func (s *BookService) withBook(bookID string, fn func(*domain.Book) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.collection {
		if s.collection[i].ID == bookID {
			return fn(&s.collection[i])
		}
	}
	return domainerrors.NotFoundf("book %s not found", bookID)
}

// afterMutation schedules a save and refreshes the book's search documents.
func (s *BookService) afterMutation(ctx context.Context, bookID string) {
	s.notifyScheduler()

	if s.index == nil {
		return
	}
	s.mu.RLock()
	var book *domain.Book
	for i := range s.collection {
		if s.collection[i].ID == bookID {
			cloned := cloneBook(&s.collection[i])
			book = cloned
			break
		}
	}
	s.mu.RUnlock()

	if book == nil {
		return
	}
	if err := s.index.IndexBook(ctx, book); err != nil {
		s.logger.Warn("failed to index book", "book_id", bookID, "error", err)
	}
}

// deleteOriginals removes stored originals for the given photos. Originals
// are a cache of uploaded bytes, so failures only warn.
func (s *BookService) deleteOriginals(photoIDs ...string) {
	if s.originals == nil {
		return
	}
	for _, photoID := range photoIDs {
		if err := s.originals.Delete(photoID); err != nil {
			s.logger.Warn("failed to delete photo original", "photo_id", photoID, "error", err)
		}
	}
}

// notifyScheduler hands the scheduler a snapshot of the collection.
func (s *BookService) notifyScheduler() {
	s.mu.RLock()
	snapshot := cloneBooks(s.collection)
	s.mu.RUnlock()

	s.scheduler.Notify(snapshot)
}

// validateCaptions checks both caption bounds on sanitized text.
func validateCaptions(captions ...string) error {
	for _, caption := range captions {
		if !validation.ValidateCaptionWords(caption) {
			return domainerrors.Validationf("caption must be at most %d words", validation.MaxCaptionWords)
		}
		if !validation.ValidateCaption(caption) {
			return domainerrors.Validationf("caption must be at most %d characters", validation.MaxCaptionLength)
		}
	}
	return nil
}

// cloneBooks deep-copies a collection snapshot.
func cloneBooks(books []domain.Book) []domain.Book {
	if books == nil {
		return []domain.Book{}
	}
	cloned := make([]domain.Book, len(books))
	for i := range books {
		cloned[i] = *cloneBook(&books[i])
	}
	return cloned
}

// cloneBook deep-copies one book.
func cloneBook(src *domain.Book) *domain.Book {
	book := *src

	if src.CoverDesign != nil {
		cover := *src.CoverDesign
		book.CoverDesign = &cover
	}

	book.Categories = append([]domain.Category(nil), src.Categories...)
	book.Dividers = append([]domain.Divider(nil), src.Dividers...)

	book.Memories = make([]domain.Page, len(src.Memories))
	for i := range src.Memories {
		page := src.Memories[i]
		page.Photos = make([]domain.Photo, len(src.Memories[i].Photos))
		for j := range src.Memories[i].Photos {
			photo := src.Memories[i].Photos[j]
			if photo.Position != nil {
				position := *photo.Position
				photo.Position = &position
			}
			page.Photos[j] = photo
		}
		book.Memories[i] = page
	}

	return &book
}
