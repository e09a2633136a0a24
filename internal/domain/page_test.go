package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPhoto_RejectsSixth(t *testing.T) {
	page := newTestPage(t, "")

	for range MaxPhotosPerPage {
		require.NoError(t, page.AddPhoto(newTestPhoto(t)))
	}
	require.True(t, page.IsFull())

	err := page.AddPhoto(newTestPhoto(t))
	assert.ErrorIs(t, err, ErrPageFull)
	assert.Len(t, page.Photos, MaxPhotosPerPage)
}

func TestPage_RemovePhoto(t *testing.T) {
	page := newTestPage(t, "")
	photo := newTestPhoto(t)
	require.NoError(t, page.AddPhoto(photo))

	require.NoError(t, page.RemovePhoto(photo.ID))
	assert.Empty(t, page.Photos)

	assert.ErrorIs(t, page.RemovePhoto("photo-missing"), ErrPhotoNotFound)
}

func TestFindPhoto(t *testing.T) {
	page := newTestPage(t, "")
	photo := newTestPhoto(t)
	require.NoError(t, page.AddPhoto(photo))

	found := page.FindPhoto(photo.ID)
	require.NotNil(t, found)
	assert.Equal(t, photo.ID, found.ID)

	assert.Nil(t, page.FindPhoto("photo-missing"))
}

func TestPattern_Valid(t *testing.T) {
	for _, p := range Patterns {
		assert.True(t, p.Valid(), "pattern %q", p)
	}
	assert.False(t, Pattern("plaid").Valid())
}
