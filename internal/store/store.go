// Package store persists vector index snapshots as opaque blobs keyed by
// document fingerprint. The payload format belongs to the index package;
// stores never look inside it.
package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrSnapshotNotFound is returned by Load when no snapshot exists for the key.
var ErrSnapshotNotFound = errors.New("no snapshot for document")

// SnapshotStore is the external read/write surface for persisted indexes.
type SnapshotStore interface {
	Save(ctx context.Context, key string, payload []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// FileStore keeps one snapshot file per document under a directory.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".snapshot")
}

func (s *FileStore) Save(ctx context.Context, key string, payload []byte) error {
	if key == "" {
		return fmt.Errorf("snapshot key cannot be empty")
	}
	if err := os.WriteFile(s.path(key), payload, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, key string) ([]byte, error) {
	payload, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return payload, nil
}
