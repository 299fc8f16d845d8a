package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore keeps the resolved map in a single JSON file. All writes go
// through one mutex and replace the file atomically (write temp, rename),
// so a crash between compute and write never corrupts existing entries.
type FileStore struct {
	path    string
	mu      sync.Mutex
	entries map[string]string
}

// NewFileStore loads (or initializes) the JSON file at path.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{path: path, entries: make(map[string]string)}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// First run: the file appears on the first Put.
	case err != nil:
		return nil, fmt.Errorf("reading store file %s: %w", path, err)
	default:
		if len(data) > 0 {
			if err := json.Unmarshal(data, &s.entries); err != nil {
				return nil, fmt.Errorf("parsing store file %s: %w", path, err)
			}
		}
	}
	return s, nil
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	url, ok := s.entries[key]
	return url, ok, nil
}

func (s *FileStore) Put(_ context.Context, key, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = url
	return s.flushLocked()
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[key]; !ok {
		return nil
	}
	delete(s.entries, key)
	return s.flushLocked()
}

func (s *FileStore) ReadAll(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := make(map[string]string, len(s.entries))
	for k, v := range s.entries {
		snapshot[k] = v
	}
	return snapshot, nil
}

func (s *FileStore) Close() error { return nil }

// flushLocked serializes the map and atomically replaces the store file.
// Callers must hold s.mu.
func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating store directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".resolved-*.json")
	if err != nil {
		return fmt.Errorf("creating temp store file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp store file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp store file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing store file: %w", err)
	}
	return nil
}
