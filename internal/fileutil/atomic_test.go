package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "games.json")

	require.NoError(t, WriteFileAtomic(path, []byte(`{"g1":{}}`), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"g1":{}}`, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	// The temp file must not survive the rename.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "games.json", entries[0].Name())
}

func TestWriteFileAtomicOverwrite(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "games.json")

	require.NoError(t, WriteFileAtomic(path, []byte("first"), 0o644))
	require.NoError(t, WriteFileAtomic(path, []byte("second"), 0o644))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestWriteFileAtomicMissingDir(t *testing.T) {
	t.Parallel()

	err := WriteFileAtomic("/nonexistent/dir/games.json", []byte("data"), 0o644)
	assert.Error(t, err)
}
