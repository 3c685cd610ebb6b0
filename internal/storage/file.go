package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	dirPerm  fs.FileMode = 0o700
	filePerm fs.FileMode = 0o600
)

// FileStorage keeps each key in its own file inside one directory. Every
// process that opens the same directory sees the same values; the last write
// wins.
type FileStorage struct {
	dir string
}

// type check
var _ Storage = (*FileStorage)(nil)

// NewFileStorage creates dir if needed and returns a storage rooted at it.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		return nil, errors.New("storage directory is required")
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving storage directory: %w", err)
	}

	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}

	return &FileStorage{dir: abs}, nil
}

// Dir returns the absolute directory the storage lives in.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Get implements the [Storage] interface for *FileStorage.
func (s *FileStorage) Get(key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading %q: %w", key, err)
	}

	return string(data), true, nil
}

// Set implements the [Storage] interface for *FileStorage.
func (s *FileStorage) Set(key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	// The directory may have been removed since the storage was opened.
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return fmt.Errorf("creating storage directory: %w", err)
	}

	if err := writeFile(s.path(key), []byte(value), filePerm); err != nil {
		return fmt.Errorf("writing %q: %w", key, err)
	}
	return nil
}

// Remove implements the [Storage] interface for *FileStorage.
func (s *FileStorage) Remove(key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	err := os.Remove(s.path(key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing %q: %w", key, err)
	}
	return nil
}

// Clear implements the [Storage] interface for *FileStorage. Temporary files
// left behind by interrupted writes are removed too.
func (s *FileStorage) Clear() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("listing storage: %w", err)
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		err := os.Remove(filepath.Join(s.dir, e.Name()))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// Keys lists the keys currently stored.
func (s *FileStorage) Keys() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("listing storage: %w", err)
	}

	keys := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		keys = append(keys, e.Name())
	}
	return keys, nil
}

func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, key)
}
