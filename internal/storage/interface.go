package storage

import "io"

// ArtifactStore defines the interface for run-artifact storage
// operations. Writes are atomic: a partially written artifact must
// never be observable under its final name.
type ArtifactStore interface {
	// Save stores an artifact under the given name and returns its
	// locally addressable path
	Save(name string, data []byte) (string, error)

	// Open opens a stored artifact for reading
	Open(name string) (io.ReadCloser, error)

	// Exists checks if an artifact exists
	Exists(name string) (bool, error)

	// Path returns the path an artifact is (or would be) stored at
	Path(name string) string
}
