// Package objectstore persists binary artifacts (source documents and
// cover images) under logical keys, keeping the pipeline independent of
// where the bytes actually live.
package objectstore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store reads and writes binary objects by logical key.
type Store interface {
	// Put stores data under key, replacing any previous object.
	Put(key string, data []byte) error
	// Get returns the object stored under key.
	Get(key string) ([]byte, error)
	// Exists reports whether an object is stored under key.
	Exists(key string) (bool, error)
}

// DocumentKey returns the storage key for a book's source document.
func DocumentKey(isbn13 string) string {
	return fmt.Sprintf("books/%s/original.pdf", isbn13)
}

// CoverKey returns the storage key for a book's cover image.
func CoverKey(isbn13 string) string {
	return fmt.Sprintf("covers/%s.jpg", isbn13)
}

// FS stores objects as files under a root directory, one file per key.
type FS struct {
	root string
}

// NewFS creates a filesystem store rooted at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &FS{root: dir}, nil
}

// Root returns the store's root directory.
func (s *FS) Root() string { return s.root }

func (s *FS) path(key string) (string, error) {
	// Keys are forward-slash logical paths. Reject anything that would
	// escape the root.
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

func (s *FS) Put(key string, data []byte) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing object %s: %w", key, err)
	}
	return nil
}

func (s *FS) Get(key string) ([]byte, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("reading object %s: %w", key, err)
	}
	return data, nil
}

func (s *FS) Exists(key string) (bool, error) {
	p, err := s.path(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking object %s: %w", key, err)
	}
	return true, nil
}
