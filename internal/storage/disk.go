package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DocumentStore reads and writes envelope documents by relative path.
type DocumentStore interface {
	Put(ctx context.Context, path string, data []byte) error
	Get(ctx context.Context, path string) ([]byte, error)
	Exists(ctx context.Context, path string) (bool, error)
}

// DiskStore implements DocumentStore on the local filesystem under a
// configured root directory.
type DiskStore struct {
	root string
}

var _ DocumentStore = (*DiskStore)(nil)

// NewDiskStore constructs a store rooted at dir.
func NewDiskStore(dir string) *DiskStore {
	return &DiskStore{root: dir}
}

// resolve joins the relative path under the root, rejecting traversal.
func (s *DiskStore) resolve(path string) (string, error) {
	cleaned := filepath.Clean(strings.TrimPrefix(path, "/"))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("invalid document path %q", path)
	}
	return filepath.Join(s.root, cleaned), nil
}

// Put writes data, creating intermediate directories.
func (s *DiskStore) Put(_ context.Context, path string, data []byte) error {
	full, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("create document directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// Get reads the document bytes.
func (s *DiskStore) Get(_ context.Context, path string) ([]byte, error) {
	full, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return data, nil
}

// Exists reports whether the document is present.
func (s *DiskStore) Exists(_ context.Context, path string) (bool, error) {
	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat document: %w", err)
	}
	return true, nil
}
