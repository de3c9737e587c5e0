package blobstore

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_SaveAndLoad(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	err = store.Save(ctx, "parsed/file1.txt", "extracted text", map[string]string{
		"file_id":   "file1",
		"file_name": "report.pdf",
	})
	require.NoError(t, err)

	got, err := store.Load(ctx, "parsed/file1.txt")
	require.NoError(t, err)
	assert.Equal(t, "extracted text", got)

	exists, err := store.Exists(ctx, "parsed/file1.txt")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLocal_MetadataSidecar(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "parsed/doc42.txt", "text", map[string]string{
		"file_id": "doc42",
	}))

	data, err := os.ReadFile(filepath.Join(root, "metadata", "doc42.json"))
	require.NoError(t, err)

	var meta map[string]string
	require.NoError(t, json.Unmarshal(data, &meta))
	assert.Equal(t, "doc42", meta["file_id"])
}

func TestLocal_LoadMissing(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "parsed/absent.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	exists, err := store.Exists(context.Background(), "parsed/absent.txt")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLocal_Delete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocal(root)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "parsed/gone.txt", "text", map[string]string{"file_id": "gone"}))

	deleted, err := store.Delete(ctx, "parsed/gone.txt")
	require.NoError(t, err)
	assert.True(t, deleted)

	// Sidecar is removed along with the blob.
	_, err = os.Stat(filepath.Join(root, "metadata", "gone.json"))
	assert.True(t, os.IsNotExist(err))

	deleted, err = store.Delete(ctx, "parsed/gone.txt")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestLocal_RejectsEscapingPaths(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	err = store.Save(context.Background(), "../outside.txt", "text", nil)
	assert.Error(t, err)
}
