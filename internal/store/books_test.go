package store

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/keepsakeapp/keepsake/internal/domain"
	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/keepsakeapp/keepsake/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestBooks creates a Books store on a fresh local backend.
func setupTestBooks(t *testing.T) *Books {
	t.Helper()

	log := logger.New(logger.Config{Level: slog.LevelDebug})
	local, err := NewLocal(t.TempDir(), log.Logger)
	require.NoError(t, err)
	t.Cleanup(func() {
		local.Close() //nolint:errcheck
	})

	return NewBooks(local, log.Logger)
}

// createTestBook builds a populated book with one page and one photo.
func createTestBook(t *testing.T, name string) domain.Book {
	t.Helper()

	book, err := domain.NewBook(name, "#2c2c2c")
	require.NoError(t, err)

	page, err := domain.NewPage("Vacation")
	require.NoError(t, err)

	photo, err := domain.NewPhoto("https://example.com/beach.jpg", "Beach day", "So much fun")
	require.NoError(t, err)
	photo.Position = &domain.Position{X: 10, Y: 20}

	require.NoError(t, page.AddPhoto(*photo))
	require.NoError(t, book.AddCategory(domain.Category{Name: "Vacation", Color: "#1e3a8a"}))
	require.NoError(t, book.AddPage(*page))

	return *book
}

func TestBooks_LoadNewUser(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	loaded, err := books.Load(ctx, "user-new")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestBooks_SaveAndLoad(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Summer 2024")
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{book}))

	loaded, err := books.Load(ctx, "user-001")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, book.ID, loaded[0].ID)
	assert.Equal(t, "Summer 2024", loaded[0].Name)
	require.Len(t, loaded[0].Memories, 1)
	require.Len(t, loaded[0].Memories[0].Photos, 1)
	assert.Equal(t, "Beach day", loaded[0].Memories[0].Photos[0].InnerCaption)
	require.NotNil(t, loaded[0].Memories[0].Photos[0].Position)
	assert.Equal(t, 10.0, loaded[0].Memories[0].Photos[0].Position.X)
}

func TestBooks_SaveEmptyCollection(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Summer 2024")
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{book}))

	// Deleting the last book persists as an empty collection.
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{}))

	loaded, err := books.Load(ctx, "user-001")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestBooks_SaveSanitizesText(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "<b>Summer</b> 2024")
	book.Memories[0].Photos[0].InnerCaption = "  <script>alert('x')</script>Beach day  "

	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{book}))

	loaded, err := books.Load(ctx, "user-001")
	require.NoError(t, err)
	assert.Equal(t, "Summer 2024", loaded[0].Name)
	assert.Equal(t, "alert('x')Beach day", loaded[0].Memories[0].Photos[0].InnerCaption)
}

func TestBooks_SaveDoesNotMutateInput(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "<b>Summer</b> 2024")
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{book}))

	// The caller's copy keeps its raw text; only the stored copy is cleaned.
	assert.Equal(t, "<b>Summer</b> 2024", book.Name)
}

func TestBooks_SaveAbortsOnValidationFailure(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	good := createTestBook(t, "Summer 2024")
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{good}))

	bad := createTestBook(t, "")
	err := books.Save(ctx, "user-001", []domain.Book{good, bad})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrValidation)

	// The stored document is untouched by the failed save.
	loaded, err := books.Load(ctx, "user-001")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Summer 2024", loaded[0].Name)
}

func TestBooks_SaveRejectsEmptyCategoryName(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	// A category name that is pure markup sanitizes to nothing.
	book := createTestBook(t, "Summer 2024")
	book.Categories[0].Name = "<b></b>"

	err := books.Save(ctx, "user-001", []domain.Book{book})
	assert.ErrorIs(t, err, errors.ErrValidation)

	loaded, err := books.Load(ctx, "user-001")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestBooks_SaveRejectsLongCaption(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Summer 2024")
	book.Memories[0].Photos[0].OuterCaption = strings.Repeat("word ", 21)

	err := books.Save(ctx, "user-001", []domain.Book{book})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestBooks_SaveRejectsOversizedImage(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Summer 2024")
	// Base64 payload estimating past the 5MB image ceiling.
	book.Memories[0].Photos[0].Image = "data:image/jpeg;base64," + strings.Repeat("A", 7_000_000)

	err := books.Save(ctx, "user-001", []domain.Book{book})
	assert.ErrorIs(t, err, errors.ErrFileTooLarge)
}

func TestBooks_SaveRejectsOversizedDocument(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Summer 2024")
	// Under the per-photo ceiling but past the 1 MiB document ceiling.
	book.Memories[0].Photos[0].Image = "data:image/jpeg;base64," + strings.Repeat("A", 1_200_000)

	err := books.Save(ctx, "user-001", []domain.Book{book})
	assert.ErrorIs(t, err, errors.ErrSizeLimit)
}

func TestBooks_SaveRejectsUnknownCoverPattern(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Summer 2024")
	book.CoverDesign = &domain.CoverDesign{
		BackgroundColor: "#2c2c2c",
		Pattern:         "plaid",
		TextColor:       "#ffffff",
	}

	err := books.Save(ctx, "user-001", []domain.Book{book})
	assert.ErrorIs(t, err, errors.ErrValidation)
}

func TestBooks_LastWriteWins(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	first := createTestBook(t, "First")
	second := createTestBook(t, "Second")

	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{first}))
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{second}))

	loaded, err := books.Load(ctx, "user-001")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "Second", loaded[0].Name)
}

func TestBooks_RequiresUser(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	_, err := books.Load(ctx, "")
	assert.ErrorIs(t, err, errors.ErrUnauthorized)

	err = books.Save(ctx, "", nil)
	assert.ErrorIs(t, err, errors.ErrUnauthorized)
}

func TestBooks_UsersAreIsolated(t *testing.T) {
	books := setupTestBooks(t)
	ctx := context.Background()

	book := createTestBook(t, "Mine")
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{book}))

	loaded, err := books.Load(ctx, "user-002")
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestDocument_UpdatedAtSetOnSave(t *testing.T) {
	log := logger.New(logger.Config{Level: slog.LevelDebug})
	local, err := NewLocal(t.TempDir(), log.Logger)
	require.NoError(t, err)
	defer local.Close() //nolint:errcheck

	books := NewBooks(local, log.Logger)
	ctx := context.Background()

	before := time.Now().UTC()
	require.NoError(t, books.Save(ctx, "user-001", []domain.Book{createTestBook(t, "Summer 2024")}))

	doc, err := local.LoadDocument(ctx, "user-001")
	require.NoError(t, err)
	assert.False(t, doc.UpdatedAt.Before(before))
}
