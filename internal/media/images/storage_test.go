package images

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/keepsakeapp/keepsake/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStorage(t *testing.T) *Storage {
	t.Helper()
	storage, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	return storage
}

func TestNewStorage(t *testing.T) {
	t.Run("creates originals directory", func(t *testing.T) {
		tmpDir := t.TempDir()
		_, err := NewStorage(tmpDir)
		require.NoError(t, err)

		info, err := os.Stat(filepath.Join(tmpDir, "originals"))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects empty base path", func(t *testing.T) {
		_, err := NewStorage("")
		assert.ErrorIs(t, err, errors.ErrValidation)
	})
}

func TestStorage_SaveAndGet(t *testing.T) {
	storage := setupTestStorage(t)
	data := []byte("fake image bytes")

	require.NoError(t, storage.Save("photo-abc", data))

	got, err := storage.Get("photo-abc")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestStorage_SaveValidation(t *testing.T) {
	storage := setupTestStorage(t)

	assert.Error(t, storage.Save("", []byte("data")))
	assert.Error(t, storage.Save("photo-abc", nil))
}

func TestStorage_GetMissing(t *testing.T) {
	storage := setupTestStorage(t)

	_, err := storage.Get("photo-missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestStorage_Exists(t *testing.T) {
	storage := setupTestStorage(t)

	assert.False(t, storage.Exists("photo-abc"))
	require.NoError(t, storage.Save("photo-abc", []byte("data")))
	assert.True(t, storage.Exists("photo-abc"))
	assert.False(t, storage.Exists(""))
}

func TestStorage_Delete(t *testing.T) {
	storage := setupTestStorage(t)
	require.NoError(t, storage.Save("photo-abc", []byte("data")))

	require.NoError(t, storage.Delete("photo-abc"))
	assert.False(t, storage.Exists("photo-abc"))

	// Deleting an absent photo is not an error.
	assert.NoError(t, storage.Delete("photo-abc"))
}

func TestStorage_Hash(t *testing.T) {
	storage := setupTestStorage(t)
	require.NoError(t, storage.Save("photo-abc", []byte("data")))

	hash, err := storage.Hash("photo-abc")
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	again, err := storage.Hash("photo-abc")
	require.NoError(t, err)
	assert.Equal(t, hash, again)
}
