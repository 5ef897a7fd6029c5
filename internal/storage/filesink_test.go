package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSinkCreatesFolderAndWrites(t *testing.T) {
	folder := filepath.Join(t.TempDir(), "submissions", "acme_20260828_1030")

	path, err := DiskSink{}.Store([]byte("%PDF-1.4"), "pitch.pdf", folder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "pitch.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
}

func TestDiskSinkStripsDirectoryComponents(t *testing.T) {
	folder := t.TempDir()

	path, err := DiskSink{}.Store([]byte("x"), "../../etc/evil.pdf", folder)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(folder, "evil.pdf"), path)
}

func TestDiskSinkRejectsEmptyFilename(t *testing.T) {
	_, err := DiskSink{}.Store([]byte("x"), "", t.TempDir())
	assert.Error(t, err)
}
