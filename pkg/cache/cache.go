package cache

import (
	"crypto/sha512"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Cache stores gob encoded values as one file per key in a directory. Writes go through a temp
// file renamed into place, so readers never see a partial entry.
type Cache[K ~string, V any] struct {
	dir string
}

// DefaultDir is the iasm directory under the user's cache directory.
func DefaultDir() (string, error) {
	userCacheDir, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user cache directory: %w", err)
	}
	return filepath.Join(userCacheDir, "iasm"), nil
}

// NewCache creates a cache in dir, creating the directory if needed.
func NewCache[K ~string, V any](dir string) (*Cache[K, V], error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Cache[K, V]{dir: dir}, nil
}

// path names the entry for key. Keys are hashed so any string is a valid key.
func (c *Cache[K, V]) path(key K) string {
	sum := sha512.Sum512([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:]))
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Put stores value under key, replacing any previous value.
func (c *Cache[K, V]) Put(key K, value V) (err error) {
	tempFile, err := os.CreateTemp(c.dir, "put-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			err = errors.Join(err, tempFile.Close())
		}
		if rmErr := removeIfExists(tempFile.Name()); rmErr != nil {
			err = errors.Join(err, fmt.Errorf("failed to remove temp file: %w", rmErr))
		}
	}()

	if err := gob.NewEncoder(tempFile).Encode(value); err != nil {
		return fmt.Errorf("failed to encode value: %w", err)
	}
	closed = true
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tempFile.Name(), c.path(key)); err != nil {
		return fmt.Errorf("failed to move temp file into place: %w", err)
	}
	return nil
}

// Get returns the value stored under key. A missing entry returns the zero value and no error.
func (c *Cache[K, V]) Get(key K) (value V, err error) {
	file, err := os.Open(c.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return value, nil
		}
		return value, fmt.Errorf("failed to open cache entry: %w", err)
	}
	defer func() { err = errors.Join(err, file.Close()) }()

	if err := gob.NewDecoder(file).Decode(&value); err != nil {
		return value, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return value, nil
}

// Delete removes the entry for key, if there is one.
func (c *Cache[K, V]) Delete(key K) error {
	if err := removeIfExists(c.path(key)); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Clear removes every entry, and temp files left behind by interrupted writes, returning how
// many files it removed.
func (c *Cache[K, V]) Clear() (int, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to list cache directory: %w", err)
	}
	removed := 0
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := removeIfExists(filepath.Join(c.dir, entry.Name())); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
