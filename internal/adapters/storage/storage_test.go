package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"batchingest/internal/ports"
	appError "batchingest/internal/shared/error"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"uploads/2024/transactions.csv", "uploads_2024_transactions.csv"},
		{`dir\file name.csv`, "dir_filename.csv"},
		{"ünïcode.csv", "ncode.csv"},
		{"", "downloaded_file"},
		{"...", "downloaded_file"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, sanitizeFilename(tt.in), tt.in)
	}

	long := sanitizeFilename(strings.Repeat("a", 400) + ".csv")
	assert.LessOrEqual(t, len(long), maxFilenameLength)
	assert.True(t, strings.HasSuffix(long, ".csv"))
}

func TestStagingAreaLifecycle(t *testing.T) {
	dir := t.TempDir()
	area, err := newStagingArea(dir)
	require.NoError(t, err)

	path, data, err := area.stage("uploads/a.csv", strings.NewReader("id\n1\n"))
	require.NoError(t, err)
	assert.Equal(t, "id\n1\n", string(data))
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)

	require.NoError(t, area.release(path))
	assert.NoFileExists(t, path)
	assert.NoError(t, area.release(path), "releasing twice is harmless")
	assert.NoError(t, area.release(""))

	_, _, err = area.stage("b.csv", strings.NewReader("x"))
	require.NoError(t, err)
	_, _, err = area.stage("c.csv", strings.NewReader("y"))
	require.NoError(t, err)

	require.NoError(t, area.cleanup(context.Background()))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocalStorage(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "inbox"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "inbox", "shops.csv"), []byte("shop_id\ns1\n"), 0o644))

	store, err := NewLocalStorage(root)
	require.NoError(t, err)
	ctx := context.Background()
	ref := ports.FileRef{Bucket: "inbox", Object: "shops.csv"}

	meta, err := store.Metadata(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, int64(11), meta.Size)
	assert.Len(t, meta.ETag, 32)

	obj, err := store.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "shop_id\ns1\n", string(obj.Data))
	assert.Empty(t, obj.LocalPath)
	assert.NoError(t, store.Release(ctx, obj))

	_, err = store.Metadata(ctx, ports.FileRef{Bucket: "inbox", Object: "missing.csv"})
	assert.ErrorIs(t, err, appError.ErrObjectNotFound)

	_, err = store.Fetch(ctx, ports.FileRef{Bucket: "inbox", Object: "missing.csv"})
	assert.ErrorIs(t, err, appError.ErrObjectNotFound)

	_, err = store.Fetch(ctx, ports.FileRef{Bucket: "..", Object: "etc/passwd"})
	assert.ErrorIs(t, err, appError.ErrObjectUnreadable)
}

func TestNewLocalStorageRejectsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewLocalStorage(file)
	assert.Error(t, err)
}
