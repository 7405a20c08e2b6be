package storage_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vibast-solutions/ms-go-accounts/app/storage"
)

func TestLocalImageStore_SaveAndDelete(t *testing.T) {
	root := t.TempDir()
	store := storage.NewLocalImageStore(root, "static", 1024)
	ctx := context.Background()

	p, err := store.Save(ctx, "avatar.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(p)))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "/static/"+p, store.URL(p))

	entries, err := os.ReadDir(filepath.Join(root, "images", "profile_pics"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files should remain")

	require.NoError(t, store.Delete(ctx, p))
	_, err = os.Stat(filepath.Join(root, filepath.FromSlash(p)))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete(ctx, p), "deleting a missing image is not an error")
}

func TestLocalImageStore_TooLarge(t *testing.T) {
	root := t.TempDir()
	store := storage.NewLocalImageStore(root, "static", 4)

	_, err := store.Save(context.Background(), "avatar.png", bytes.NewReader([]byte("12345")))
	assert.ErrorIs(t, err, storage.ErrImageTooLarge)

	entries, _ := os.ReadDir(filepath.Join(root, "images", "profile_pics"))
	assert.Empty(t, entries, "rejected uploads leave nothing behind")
}

func TestLocalImageStore_UnwritableRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(root, []byte("x"), 0o600))
	store := storage.NewLocalImageStore(root, "static", 1024)

	_, err := store.Save(context.Background(), "avatar.png", strings.NewReader("data"))
	assert.Error(t, err)
}

func TestLocalImageStore_DeleteRejectsTraversal(t *testing.T) {
	store := storage.NewLocalImageStore(t.TempDir(), "static", 1024)

	for _, p := range []string{"../../etc/passwd", "images/profile_pics/../../secret", "other/file.png"} {
		assert.ErrorIs(t, store.Delete(context.Background(), p), storage.ErrInvalidImagePath, p)
	}
}
