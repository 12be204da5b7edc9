package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore persists receipt artifacts and returns a URL operators can
// trace back to the backing store: https-style for durable storage,
// file:// for the degraded local fallback.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

// LocalStore writes blobs under a media root. It exists as the fallback
// when durable storage is unreachable; its file:// URLs make degraded mode
// visible downstream.
type LocalStore struct {
	root string
}

func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

func (s *LocalStore) Put(_ context.Context, key string, data []byte, _ string) (string, error) {
	path := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("storage: failed to create directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("storage: failed to write %s: %w", key, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve path for %s: %w", key, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}

func (s *LocalStore) PresignGet(_ context.Context, key string) (string, error) {
	abs, err := filepath.Abs(filepath.Join(s.root, filepath.FromSlash(key)))
	if err != nil {
		return "", fmt.Errorf("storage: failed to resolve path for %s: %w", key, err)
	}
	return "file://" + filepath.ToSlash(abs), nil
}
