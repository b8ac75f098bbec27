// Package file stores brain documents as JSON files in a state directory.
package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/steveyegge/brain/internal/types"
)

// Store keeps one file per document key: <dir>/.brain-<key>.json
type Store struct {
	dir string
}

// New creates a file store rooted at dir, creating the directory if needed
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating state directory: %v", types.ErrStorageUnavailable, err)
	}
	return &Store{dir: dir}, nil
}

// Path returns the file backing key
func (s *Store) Path(key string) string {
	return filepath.Join(s.dir, ".brain-"+key+".json")
}

// Load reads the document for key. A missing file is reported as not found.
func (s *Store) Load(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading %s: %v", types.ErrStorageUnavailable, key, err)
	}
	return data, true, nil
}

// Save replaces the document for key atomically using temp file + rename
func (s *Store) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path := s.Path(key)

	tmp, err := os.CreateTemp(s.dir, ".brain-"+key+"-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: writing %s: %v", types.ErrStorageUnavailable, key, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %v", types.ErrStorageUnavailable, key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: writing %s: %v", types.ErrStorageUnavailable, key, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // Clean up on error (best effort)
		return fmt.Errorf("%w: committing %s: %v", types.ErrStorageUnavailable, key, err)
	}
	return nil
}

// Close is a no-op for the file store
func (s *Store) Close() error {
	return nil
}
