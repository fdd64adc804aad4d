// Package storage keeps imported file contents on local disk under
// {root}/{userID}/{dataroomID}/{filename}.
package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound is returned by Read when no blob exists at the path.
var ErrNotFound = errors.New("blob not found")

const tempPrefix = ".tmp-"

// Store is a directory-backed blob store.
type Store struct {
	root string
}

// New returns a Store rooted at root. The directory is created on first write.
func New(root string) *Store {
	return &Store{root: root}
}

// Root is the directory blobs live under.
func (s *Store) Root() string {
	return s.root
}

// PathFor builds the blob path for a file. It touches nothing on disk.
func (s *Store) PathFor(userID, dataroomID, filename string) string {
	return filepath.Join(s.root, userID, dataroomID, filename)
}

// Write stores data at path, replacing any existing blob, and returns the byte count.
func (s *Store) Write(path string, data []byte) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	n, err := tmp.Write(data)
	if err != nil {
		tmp.Close()
		return 0, fmt.Errorf("write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return 0, fmt.Errorf("rename temp file: %w", err)
	}

	success = true
	return int64(n), nil
}

// Read returns the blob at path, or ErrNotFound.
func (s *Store) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Remove deletes the blob at path. It reports whether a blob was removed and
// never fails: a missing blob or an OS error both yield false.
func (s *Store) Remove(path string) bool {
	return os.Remove(path) == nil
}

// Walk calls fn for every stored blob. In-progress temp files are skipped.
func (s *Store) Walk(fn func(path string, modTime time.Time) error) error {
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(path, info.ModTime())
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
