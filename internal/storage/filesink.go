package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSink stores attachment bytes and returns the stored path.
type FileSink interface {
	Store(data []byte, filename, folder string) (string, error)
}

// DiskSink writes attachments to the local filesystem, creating the
// destination folder when absent. Collisions inside one folder are
// last-write-wins; the assembler's per-submission folders keep concurrent
// submissions apart.
type DiskSink struct{}

func (DiskSink) Store(data []byte, filename, folder string) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("sink: empty filename")
	}
	if err := os.MkdirAll(folder, 0o755); err != nil {
		return "", fmt.Errorf("sink: mkdir %s: %w", folder, err)
	}
	path := filepath.Join(folder, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("sink: write %s: %w", path, err)
	}
	return path, nil
}
