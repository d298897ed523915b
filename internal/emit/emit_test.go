package emit

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "gold", "schema.sql")

	require.NoError(t, WriteFile(path, []byte("first")))
	require.NoError(t, WriteFile(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestWriteFile_DirectoryIsFile(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	err := WriteFile(filepath.Join(blocker, "x.sql"), []byte("x"))
	assert.ErrorContains(t, err, "failed to create directory")
}

func TestFailed(t *testing.T) {
	results := []Result{
		{Name: "sql", Path: "model.sql"},
		{Name: "erd", Path: "erd.dot", Err: errors.New("boom")},
	}
	failed := Failed(results)
	require.Len(t, failed, 1)
	assert.Equal(t, "erd", failed[0].Name)
	assert.True(t, results[0].OK())
	assert.Nil(t, Failed(results[:1]))
}
