package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"

	"github.com/meridianhq/meridian/modules/core/domain/entities/blob"
)

var ErrInvalidKey = errors.New("invalid storage key")

// FSStorage is a local-filesystem blob.Storage used in development and
// single-node deployments. Keys are relative paths under the base
// directory.
type FSStorage struct {
	basePath string
}

func NewFSStorage(basePath string) blob.Storage {
	return &FSStorage{basePath: basePath}
}

func (s *FSStorage) resolve(key string) (string, error) {
	cleaned := filepath.Clean("/" + key)
	if cleaned == "/" {
		return "", ErrInvalidKey
	}
	full := filepath.Join(s.basePath, cleaned)
	if !strings.HasPrefix(full, filepath.Clean(s.basePath)+string(os.PathSeparator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

func (s *FSStorage) Save(ctx context.Context, key string, data []byte) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "failed to create storage directory")
	}
	return os.WriteFile(path, data, 0o644)
}

// Delete removes a blob. A missing key is treated as success so repeated
// cascade runs stay idempotent.
func (s *FSStorage) Delete(ctx context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "failed to delete blob")
	}
	return nil
}
