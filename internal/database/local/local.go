// Package local implements the fallback tier of the embedding store: a single
// JSON file holding every record, read in full and rewritten in full on each append.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kozaktomas/faceid/internal/database"
)

// FileStore keeps embedding records in a human-inspectable JSON file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed tier. The file and its directory are
// created on first append.
func NewFileStore(path string) *FileStore {
	if path == "" {
		path = database.DefaultLocalPath
	}
	return &FileStore{path: path}
}

// Path returns the location of the backing file.
func (s *FileStore) Path() string {
	return s.path
}

// Append adds one record and rewrites the file.
func (s *FileStore) Append(ctx context.Context, rec database.EmbeddingRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.read()
	if err != nil {
		// A corrupt file is replaced rather than blocking every future write.
		records = nil
	}
	records = append(records, rec)
	return s.write(records)
}

// LoadAll returns every record in the file. A missing file yields no records.
func (s *FileStore) LoadAll(ctx context.Context) ([]database.EmbeddingRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) read() ([]database.EmbeddingRecord, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []database.EmbeddingRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return records, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (s *FileStore) write(records []database.EmbeddingRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
