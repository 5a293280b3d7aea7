package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStore stores run artifacts on the local filesystem under a
// single output directory.
type LocalStore struct {
	dir string
}

// NewLocalStore creates a LocalStore rooted at dir, creating the
// directory if needed.
// Parameters:
//   - dir: output directory for this run's artifacts.
//
// Returns:
//   - *LocalStore: initialized store.
//   - error: non-nil if the directory cannot be created.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifact dir: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// Save writes data to a temporary file in the same directory and
// renames it into place, so readers never see a partial artifact.
// Parameters:
//   - name: artifact file name (no directory components).
//   - data: complete artifact bytes.
//
// Returns:
//   - string: final artifact path.
//   - error: non-nil if writing or renaming fails.
func (s *LocalStore) Save(name string, data []byte) (string, error) {
	final := s.Path(name)

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to close artifact: %w", err)
	}

	if err := os.Rename(tmpName, final); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize artifact: %w", err)
	}

	return final, nil
}

// Open opens a stored artifact for reading.
func (s *LocalStore) Open(name string) (io.ReadCloser, error) {
	return os.Open(s.Path(name))
}

// Exists checks if an artifact exists under its final name.
func (s *LocalStore) Exists(name string) (bool, error) {
	_, err := os.Stat(s.Path(name))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Path returns the path an artifact is (or would be) stored at.
func (s *LocalStore) Path(name string) string {
	return filepath.Join(s.dir, filepath.Base(name))
}
