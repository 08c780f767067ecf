package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalStore writes photo blobs under a root directory and serves them
// from a configured base URL
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a local filesystem blob store
func NewLocalStore(root, baseURL string) *LocalStore {
	return &LocalStore{
		root:    root,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload writes the blob to disk and returns its public URL. Paths are
// confined to the store root.
func (s *LocalStore) Upload(ctx context.Context, path string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("empty storage path")
	}
	full := filepath.Join(s.root, clean)

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create storage directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write photo %s: %w", path, err)
	}

	return s.baseURL + strings.ReplaceAll(clean, string(filepath.Separator), "/"), nil
}
