package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileStore keeps one JSON file per key inside a state directory.
type FileStore struct {
	dir    string
	logger *logrus.Logger
}

// NewFileStore creates the state directory if needed and returns a store
// backed by it.
func NewFileStore(dir string, logger *logrus.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir, logger: logger}, nil
}

func (s *FileStore) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, "/\\") {
		return "", fmt.Errorf("invalid store key %q", key)
	}
	return filepath.Join(s.dir, key+".json"), nil
}

// Write saves the blob atomically: it writes a temp file and renames it
// over the target so a reader never sees a half-written blob. Each write
// gets its own temp file, so concurrent writers of one key cannot
// interleave before the rename; last rename wins whole.
func (s *FileStore) Write(key string, blob []byte) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, key+"-*.tmp")
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Error("Failed to create temp blob")
		return err
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		s.logger.WithError(err).WithField("key", key).Error("Failed to write blob")
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		s.logger.WithError(err).WithField("key", key).Error("Failed to close temp blob")
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		s.logger.WithError(err).WithField("key", key).Error("Failed to commit blob")
		return err
	}
	return nil
}

// Read returns the stored blob, or ErrNotFound if the key has never been
// written.
func (s *FileStore) Read(key string) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		s.logger.WithError(err).WithField("key", key).Error("Failed to read blob")
		return nil, err
	}
	return blob, nil
}

// Delete removes the blob for the key. Deleting a missing key is a no-op.
func (s *FileStore) Delete(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error { return nil }
