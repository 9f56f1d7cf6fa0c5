package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(filepath.Join(dir, "out"))
	require.NoError(t, err)

	path, err := store.Save("terms/terms-20240115.csv", []byte("code\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "terms", "terms-20240115.csv"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "code\n", string(data))
}

func TestLocalStorageRejectsEscapes(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.Error(t, err)

	_, err = store.Save("/etc/passwd", []byte("x"))
	assert.Error(t, err)
}

func TestLocalStoragePrune(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocalStorage(dir)
	require.NoError(t, err)

	now := time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)
	oldPath, err := store.Save("terms/old.csv", []byte("x"))
	require.NoError(t, err)
	freshPath, err := store.Save("fresh.csv", []byte("y"))
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(oldPath, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))
	require.NoError(t, os.Chtimes(freshPath, now.Add(-time.Hour), now.Add(-time.Hour)))

	removed, err := store.Prune(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("terms", "old.csv")}, removed)
	assert.NoFileExists(t, oldPath)
	assert.FileExists(t, freshPath)
}
