package domain

import (
	"testing"

	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBook(t *testing.T) *Book {
	t.Helper()
	book, err := NewBook("Summer 2024", "#2c2c2c")
	require.NoError(t, err)
	return book
}

func newTestPage(t *testing.T, category string) Page {
	t.Helper()
	page, err := NewPage(category)
	require.NoError(t, err)
	return *page
}

func newTestPhoto(t *testing.T) Photo {
	t.Helper()
	photo, err := NewPhoto("https://example.com/photo.jpg", "Beach day", "So much fun")
	require.NoError(t, err)
	return *photo
}

func TestNewBook(t *testing.T) {
	book := newTestBook(t)

	assert.NotEmpty(t, book.ID)
	assert.Contains(t, book.ID, "book-")
	assert.Equal(t, "Summer 2024", book.Name)
	assert.NotNil(t, book.Memories)
	assert.Empty(t, book.Memories)
	assert.False(t, book.CreatedAt.IsZero())
}

func TestAddPage_RejectsEleventh(t *testing.T) {
	book := newTestBook(t)

	for range MaxPagesPerBook {
		require.NoError(t, book.AddPage(newTestPage(t, "")))
	}
	require.Len(t, book.Memories, MaxPagesPerBook)

	err := book.AddPage(newTestPage(t, ""))
	assert.ErrorIs(t, err, ErrBookFull)
	assert.Len(t, book.Memories, MaxPagesPerBook)
}

func TestRemovePage(t *testing.T) {
	book := newTestBook(t)
	page := newTestPage(t, "")
	require.NoError(t, book.AddPage(page))

	require.NoError(t, book.RemovePage(page.ID))
	assert.Empty(t, book.Memories)

	assert.ErrorIs(t, book.RemovePage("page-missing"), ErrPageNotFound)
}

func TestRemovePhoto_LastPhotoCascadesToPage(t *testing.T) {
	book := newTestBook(t)
	page := newTestPage(t, "")
	photo := newTestPhoto(t)
	require.NoError(t, page.AddPhoto(photo))
	require.NoError(t, book.AddPage(page))

	require.NoError(t, book.RemovePhoto(page.ID, photo.ID))

	// Deleting the sole photo removes the page itself.
	assert.Nil(t, book.FindPage(page.ID))
	assert.Empty(t, book.Memories)
}

func TestRemovePhoto_OtherPhotosKeepPage(t *testing.T) {
	book := newTestBook(t)
	page := newTestPage(t, "")
	first := newTestPhoto(t)
	second := newTestPhoto(t)
	require.NoError(t, page.AddPhoto(first))
	require.NoError(t, page.AddPhoto(second))
	require.NoError(t, book.AddPage(page))

	require.NoError(t, book.RemovePhoto(page.ID, first.ID))

	kept := book.FindPage(page.ID)
	require.NotNil(t, kept)
	assert.Len(t, kept.Photos, 1)
	assert.Equal(t, second.ID, kept.Photos[0].ID)
}

func TestAddCategory_DuplicateRejected(t *testing.T) {
	book := newTestBook(t)
	require.NoError(t, book.AddCategory(Category{Name: "Vacation", Color: "#1e3a8a"}))

	err := book.AddCategory(Category{Name: "vacation", Color: "#14532d"})
	assert.ErrorIs(t, err, errors.ErrValidation)
	assert.Len(t, book.Categories, 1)
}

func TestRenameCategory_RewritesPageReferences(t *testing.T) {
	book := newTestBook(t)
	require.NoError(t, book.AddCategory(Category{Name: "Vacation"}))
	require.NoError(t, book.AddPage(newTestPage(t, "Vacation")))
	require.NoError(t, book.AddPage(newTestPage(t, "")))

	require.NoError(t, book.RenameCategory("vacation", "Trips"))

	assert.Equal(t, "Trips", book.Categories[0].Name)
	assert.Equal(t, "Trips", book.Memories[0].Category)
	assert.Empty(t, book.Memories[1].Category)
}

func TestRemoveCategory_ClearsPageReferences(t *testing.T) {
	book := newTestBook(t)
	require.NoError(t, book.AddCategory(Category{Name: "Vacation"}))
	require.NoError(t, book.AddPage(newTestPage(t, "Vacation")))

	require.NoError(t, book.RemoveCategory("Vacation"))

	assert.Empty(t, book.Categories)
	assert.Empty(t, book.Memories[0].Category)
}

func TestPagesInCategory(t *testing.T) {
	book := newTestBook(t)
	require.NoError(t, book.AddCategory(Category{Name: "Vacation"}))
	require.NoError(t, book.AddPage(newTestPage(t, "Vacation")))
	require.NoError(t, book.AddPage(newTestPage(t, "")))
	require.NoError(t, book.AddPage(newTestPage(t, "vacation")))

	pages := book.PagesInCategory("VACATION")
	assert.Len(t, pages, 2)
}

func TestPhotoCount(t *testing.T) {
	book := newTestBook(t)
	page := newTestPage(t, "")
	require.NoError(t, page.AddPhoto(newTestPhoto(t)))
	require.NoError(t, page.AddPhoto(newTestPhoto(t)))
	require.NoError(t, book.AddPage(page))

	assert.Equal(t, 2, book.PhotoCount())
}
