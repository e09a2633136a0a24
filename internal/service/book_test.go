package service

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keepsakeapp/keepsake/internal/domain"
	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/keepsakeapp/keepsake/internal/media/images"
	"github.com/keepsakeapp/keepsake/internal/search"
	"github.com/keepsakeapp/keepsake/internal/store"
	booksync "github.com/keepsakeapp/keepsake/internal/sync"
	"github.com/keepsakeapp/keepsake/internal/validation"
)

const testQuietPeriod = 50 * time.Millisecond

type bookFixture struct {
	service   *BookService
	books     *store.Books
	local     *store.Local
	index     *search.SearchIndex
	originals *images.Storage
}

func setupTestBookService(t *testing.T) *bookFixture {
	t.Helper()

	log := logger.New(logger.Config{Level: slog.LevelDebug}).Logger

	local, err := store.NewLocal(t.TempDir(), log)
	require.NoError(t, err)
	t.Cleanup(func() {
		local.Close() //nolint:errcheck
	})

	books := store.NewBooks(local, log)

	scheduler := booksync.NewScheduler(books.Save, testQuietPeriod, log)
	t.Cleanup(scheduler.Stop)

	index, err := search.NewSearchIndex(search.Options{DataPath: t.TempDir(), Logger: log})
	require.NoError(t, err)
	t.Cleanup(func() {
		index.Close() //nolint:errcheck
	})

	processor := images.NewProcessor(images.DefaultOptions(), log)

	originals, err := images.NewStorage(t.TempDir())
	require.NoError(t, err)

	svc := NewBookService(books, scheduler, index, processor, originals, validation.New(), log)
	svc.SetUser("user-test")

	_, err = svc.LoadCollection(context.Background())
	require.NoError(t, err)

	return &bookFixture{service: svc, books: books, local: local, index: index, originals: originals}
}

// waitForStoredBooks polls the backing store until the expected number of
// books is persisted, or fails the test.
func waitForStoredBooks(t *testing.T, books *store.Books, count int) []domain.Book {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		stored, err := books.Load(context.Background(), "user-test")
		require.NoError(t, err)
		if len(stored) == count {
			return stored
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("store never reached %d books", count)
	return nil
}

// photoDataURI encodes a small JPEG as an uploadable data URI.
func photoDataURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return images.EncodeDataURI(buf.Bytes())
}

func TestBookService_CreateBook(t *testing.T) {
	f := setupTestBookService(t)

	book, err := f.service.CreateBook(context.Background(), CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	assert.Equal(t, "Summer 2024", book.Name)
	assert.NotEmpty(t, book.Color)
	require.NotNil(t, book.CoverDesign)
	assert.Equal(t, book.Color, book.CoverDesign.BackgroundColor)
	assert.True(t, book.CoverDesign.Pattern.Valid())

	assert.Len(t, f.service.Books(), 1)
}

func TestBookService_CreateBookSanitizesName(t *testing.T) {
	f := setupTestBookService(t)

	book, err := f.service.CreateBook(context.Background(), CreateBookRequest{Name: "<b>Summer</b> 2024"})
	require.NoError(t, err)
	assert.Equal(t, "Summer 2024", book.Name)
}

func TestBookService_CreateBookValidation(t *testing.T) {
	f := setupTestBookService(t)

	_, err := f.service.CreateBook(context.Background(), CreateBookRequest{Name: ""})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = f.service.CreateBook(context.Background(), CreateBookRequest{Name: "Summer", Color: "not-a-color"})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestBookService_DebouncedSave(t *testing.T) {
	f := setupTestBookService(t)

	_, err := f.service.CreateBook(context.Background(), CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	stored := waitForStoredBooks(t, f.books, 1)
	assert.Equal(t, "Summer 2024", stored[0].Name)
}

func TestBookService_RenameBook(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	require.NoError(t, f.service.RenameBook(ctx, RenameBookRequest{BookID: book.ID, Name: "Winter 2024"}))
	assert.Equal(t, "Winter 2024", f.service.Books()[0].Name)

	err = f.service.RenameBook(ctx, RenameBookRequest{BookID: "book-missing", Name: "Nope"})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBookService_UpdateCover(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	req := UpdateCoverRequest{
		BookID:          book.ID,
		BackgroundColor: "#1e3a8a",
		Pattern:         string(domain.PatternDots),
		TextColor:       "#ffffff",
	}
	require.NoError(t, f.service.UpdateCover(ctx, req))

	updated := f.service.Books()[0]
	assert.Equal(t, "#1e3a8a", updated.CoverDesign.BackgroundColor)
	assert.Equal(t, domain.PatternDots, updated.CoverDesign.Pattern)
	assert.Equal(t, "#1e3a8a", updated.Color)

	req.Pattern = "plaid"
	assert.ErrorIs(t, f.service.UpdateCover(ctx, req), errors.ErrValidation)
}

func TestBookService_DeleteBook(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteBook(ctx, book.ID))
	assert.Empty(t, f.service.Books())

	assert.ErrorIs(t, f.service.DeleteBook(ctx, book.ID), errors.ErrNotFound)
}

func TestBookService_AddPageLimit(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	for i := 0; i < domain.MaxPagesPerBook; i++ {
		_, err := f.service.AddPage(ctx, book.ID, "")
		require.NoError(t, err)
	}

	_, err = f.service.AddPage(ctx, book.ID, "")
	assert.ErrorIs(t, err, domain.ErrBookFull)
}

func TestBookService_AddPageUnknownCategory(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	_, err = f.service.AddPage(ctx, book.ID, "Vacation")
	assert.ErrorIs(t, err, errors.ErrNotFound)

	require.NoError(t, f.service.AddCategory(ctx, book.ID, domain.Category{Name: "Vacation", Color: "#14532d"}))
	page, err := f.service.AddPage(ctx, book.ID, "Vacation")
	require.NoError(t, err)
	assert.Equal(t, "Vacation", page.Category)
}

func TestBookService_AddPhoto(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)

	photo, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID:       book.ID,
		PageID:       page.ID,
		Image:        "https://example.com/beach.jpg",
		InnerCaption: "Swimming at the <i>beach</i>",
	})
	require.NoError(t, err)
	assert.Equal(t, "Swimming at the beach", photo.InnerCaption)

	stored := f.service.Books()[0]
	require.Len(t, stored.Memories[0].Photos, 1)
}

func TestBookService_AddPhotoCaptionTooLong(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)

	caption := ""
	for i := 0; i < validation.MaxCaptionWords+1; i++ {
		caption += "word "
	}

	_, err = f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID:       book.ID,
		PageID:       page.ID,
		Image:        "https://example.com/beach.jpg",
		InnerCaption: caption,
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestBookService_AddPhotoBadImage(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)

	_, err = f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  "data:image/jpeg;base64,!!!not-base64!!!",
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestBookService_UpdateCaptions(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)
	photo, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  "https://example.com/beach.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, f.service.UpdateCaptions(ctx, UpdateCaptionsRequest{
		BookID:       book.ID,
		PageID:       page.ID,
		PhotoID:      photo.ID,
		InnerCaption: "Low tide",
		OuterCaption: "July",
	}))

	updated := f.service.Books()[0].Memories[0].Photos[0]
	assert.Equal(t, "Low tide", updated.InnerCaption)
	assert.Equal(t, "July", updated.OuterCaption)
}

func TestBookService_MovePhoto(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)
	photo, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  "https://example.com/beach.jpg",
	})
	require.NoError(t, err)

	require.NoError(t, f.service.MovePhoto(ctx, book.ID, page.ID, photo.ID, 12.5, 40))

	moved := f.service.Books()[0].Memories[0].Photos[0]
	require.NotNil(t, moved.Position)
	assert.Equal(t, 12.5, moved.Position.X)
	assert.Equal(t, 40.0, moved.Position.Y)
}

func TestBookService_DeletePhotoCascade(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)
	photo, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  "https://example.com/beach.jpg",
	})
	require.NoError(t, err)

	// Deleting the only photo removes the page too.
	require.NoError(t, f.service.DeletePhoto(ctx, book.ID, page.ID, photo.ID))
	assert.Empty(t, f.service.Books()[0].Memories)
}

func TestBookService_PhotoOriginalLifecycle(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)

	// An uploaded photo's bytes are kept on disk, keyed by photo ID.
	photo, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  photoDataURI(t),
	})
	require.NoError(t, err)
	assert.True(t, f.originals.Exists(photo.ID))
	assert.NotEmpty(t, photo.BlurHash)

	// A remote URL has no bytes to keep.
	remote, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  "https://example.com/beach.jpg",
	})
	require.NoError(t, err)
	assert.False(t, f.originals.Exists(remote.ID))

	require.NoError(t, f.service.DeletePhoto(ctx, book.ID, page.ID, photo.ID))
	assert.False(t, f.originals.Exists(photo.ID))
}

func TestBookService_DeleteBookRemovesOriginals(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)
	photo, err := f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID: book.ID,
		PageID: page.ID,
		Image:  photoDataURI(t),
	})
	require.NoError(t, err)
	require.True(t, f.originals.Exists(photo.ID))

	require.NoError(t, f.service.DeleteBook(ctx, book.ID))
	assert.False(t, f.originals.Exists(photo.ID))
}

func TestBookService_CategoryLifecycle(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	require.NoError(t, f.service.AddCategory(ctx, book.ID, domain.Category{Name: "Vacation", Color: "#14532d"}))
	err = f.service.AddCategory(ctx, book.ID, domain.Category{Name: "vacation", Color: "#14532d"})
	assert.ErrorIs(t, err, errors.ErrValidation)

	page, err := f.service.AddPage(ctx, book.ID, "Vacation")
	require.NoError(t, err)

	require.NoError(t, f.service.RenameCategory(ctx, book.ID, "Vacation", "Trips"))
	assert.Equal(t, "Trips", f.service.Books()[0].Memories[0].Category)

	require.NoError(t, f.service.DeleteCategory(ctx, book.ID, "Trips"))
	assert.Empty(t, f.service.Books()[0].Memories[0].Category)

	require.NoError(t, f.service.AssignPageCategory(ctx, book.ID, page.ID, ""))
	err = f.service.AssignPageCategory(ctx, book.ID, page.ID, "Ghost")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestBookService_AddDivider(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	require.NoError(t, f.service.AddDivider(ctx, book.ID, domain.Divider{Label: "<b>Part two</b>", Color: "#7f1d1d"}))
	dividers := f.service.Books()[0].Dividers
	require.Len(t, dividers, 1)
	assert.Equal(t, "Part two", dividers[0].Label)
}

func TestBookService_SearchPhotos(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	page, err := f.service.AddPage(ctx, book.ID, "")
	require.NoError(t, err)
	_, err = f.service.AddPhoto(ctx, AddPhotoRequest{
		BookID:       book.ID,
		PageID:       page.ID,
		Image:        "https://example.com/beach.jpg",
		InnerCaption: "Swimming at the beach",
	})
	require.NoError(t, err)

	params := search.DefaultSearchParams()
	params.Query = "beach"

	result, err := f.service.SearchPhotos(ctx, params)
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, book.ID, result.Hits[0].BookID)
}

func TestBookService_SetUserClosesSaveGate(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	_, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	require.NoError(t, f.service.Flush(ctx))

	// Switching users resets the working copy; nothing is saveable until the
	// next load, so the stored document stays intact.
	f.service.SetUser("user-other")
	assert.Empty(t, f.service.Books())

	f.service.SetUser("user-test")
	_, err = f.service.LoadCollection(ctx)
	require.NoError(t, err)
	assert.Len(t, f.service.Books(), 1)
}

func TestBookService_FlushSavesImmediately(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	_, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)
	require.NoError(t, f.service.Flush(ctx))

	stored, err := f.books.Load(ctx, "user-test")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestBookService_SnapshotIsolation(t *testing.T) {
	f := setupTestBookService(t)
	ctx := context.Background()

	book, err := f.service.CreateBook(ctx, CreateBookRequest{Name: "Summer 2024"})
	require.NoError(t, err)

	snapshot := f.service.Books()
	snapshot[0].Name = "Tampered"

	assert.Equal(t, "Summer 2024", f.service.Books()[0].Name)
	_ = book
}
