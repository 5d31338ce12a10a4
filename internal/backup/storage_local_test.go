package backup

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageWriteListDelete(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)
	assert.Equal(t, "local", storage.Name())
	assert.Equal(t, dir, storage.Root())

	ctx := context.Background()

	require.NoError(t, storage.Write(ctx, bytes.NewReader([]byte("dump one")), "orders-2024-05-10-030000.sql"))
	require.NoError(t, storage.Write(ctx, bytes.NewReader([]byte("dump two")), "orders-2024-05-11-030000.sql"))

	names, err := storage.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"orders-2024-05-10-030000.sql",
		"orders-2024-05-11-030000.sql",
	}, names)

	require.NoError(t, storage.Delete(ctx, "orders-2024-05-10-030000.sql"))

	names, err = storage.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"orders-2024-05-11-030000.sql"}, names)
}

func TestLocalStorageWriteIsLastWriteWins(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, storage.Write(ctx, bytes.NewReader([]byte("first, longer payload")), "orders.sql"))
	require.NoError(t, storage.Write(ctx, bytes.NewReader([]byte("second")), "orders.sql"))

	data, err := os.ReadFile(filepath.Join(storage.Root(), "orders.sql"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalStorageCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "backups")
	_, err := NewLocalStorage(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalStorageListSkipsSubdirectories(t *testing.T) {
	dir := t.TempDir()
	storage, err := NewLocalStorage(dir)
	require.NoError(t, err)

	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o755))
	require.NoError(t, storage.Write(context.Background(), bytes.NewReader([]byte("x")), "orders.sql"))

	names, err := storage.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"orders.sql"}, names)
}

func TestLocalStorageDeleteMissingFile(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	err = storage.Delete(context.Background(), "missing.sql")
	require.Error(t, err)
	assert.True(t, IsStorageError(err))
}

func TestLocalStorageCanceledContext(t *testing.T) {
	storage, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, storage.Write(ctx, bytes.NewReader([]byte("x")), "orders.sql"))
	_, err = storage.List(ctx)
	assert.Error(t, err)
}
