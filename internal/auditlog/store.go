// Package auditlog is the append-only audit destination: every accepted
// record becomes one JSON line in a local file.
package auditlog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrInvalidRecord is returned for bodies that are not a single JSON value.
var ErrInvalidRecord = errors.New("audit record is not valid JSON")

// FileStore appends records to path. Writes are serialized so concurrent
// requests never interleave within a line.
type FileStore struct {
	mu   sync.Mutex
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Path() string { return s.path }

// Append writes raw as one compacted JSON line, creating the parent
// directory and the file on first use.
func (s *FileStore) Append(raw []byte) error {
	var line bytes.Buffer
	if err := json.Compact(&line, raw); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	line.WriteByte('\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if _, err := f.Write(line.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("append log line: %w", err)
	}
	return f.Close()
}
