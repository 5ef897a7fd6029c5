// Package storage holds the two durable writers behind every completed
// submission: an append-only JSONL log of full records and a category
// partitioned spreadsheet of flattened rows. The writers are independent;
// neither's success implies the other's.
package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bmedtech/startup-intake/internal/models"
)

// Report carries the independent outcome of both persistence writers for
// one submission.
type Report struct {
	LogErr     error
	TabularErr error
}

// OK reports full success on both writers.
func (r Report) OK() bool { return r.LogErr == nil && r.TabularErr == nil }

// Partial reports a durable log write with a failed tabular write.
func (r Report) Partial() bool { return r.LogErr == nil && r.TabularErr != nil }

// LogStore appends full submission records to a JSONL file, one
// self-contained JSON object per line. Append is the only mutation; prior
// entries are never rewritten. The mutex serializes writers within the
// process; cross-process writers are not coordinated.
type LogStore struct {
	mu   sync.Mutex
	path string
}

func NewLogStore(path string) *LogStore {
	return &LogStore{path: path}
}

// Append serializes sub and appends it as one newline-terminated line.
func (s *LogStore) Append(sub *models.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("log store: marshal: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("log store: mkdir %s: %w", dir, err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return fmt.Errorf("log store: open %s: %w", s.path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("log store: append: %w", err)
	}
	return nil
}

// ReadAll returns every record in append order. Lines that do not decode
// (typically a trailing partial line from a crashed writer) are skipped.
func (s *LogStore) ReadAll() ([]models.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("log store: open %s: %w", s.path, err)
	}
	defer f.Close()

	var subs []models.Submission
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var sub models.Submission
		if err := json.Unmarshal(scanner.Bytes(), &sub); err != nil {
			continue
		}
		subs = append(subs, sub)
	}
	if err := scanner.Err(); err != nil {
		return subs, fmt.Errorf("log store: scan %s: %w", s.path, err)
	}
	return subs, nil
}

// Recent returns up to limit records, newest last.
func (s *LogStore) Recent(limit int) ([]models.Submission, error) {
	subs, err := s.ReadAll()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(subs) > limit {
		subs = subs[len(subs)-limit:]
	}
	return subs, nil
}

// Count returns the number of decodable records in the log.
func (s *LogStore) Count() (int, error) {
	subs, err := s.ReadAll()
	if err != nil {
		return 0, err
	}
	return len(subs), nil
}
