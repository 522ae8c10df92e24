// Package storage archives generated report files on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/perse/carbon-dashboard/internal/config"
)

// ErrNotFound is returned by Get when the key does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Object is one file to archive.
type Object struct {
	Key         string
	ContentType string
	Body        []byte
}

// Archive is the write/read surface the report generator needs.
type Archive interface {
	Put(ctx context.Context, obj Object) error
	Get(ctx context.Context, key string) ([]byte, error)
	// Location renders key as a human-readable URI.
	Location(key string) string
}

// New creates the archive described by cfg
func New(ctx context.Context, cfg config.StorageConfig) (Archive, error) {
	switch cfg.Type {
	case "aws":
		s3Store, err := NewS3Storage(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		return s3Store, nil
	case "local", "":
		return NewLocalStorage(cfg.LocalPath)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

// Key joins path elements into an archive key.
func Key(parts ...string) string {
	return strings.TrimPrefix(path.Join(parts...), "/")
}

// LocalStorage writes objects under a root directory.
type LocalStorage struct {
	root string
}

// NewLocalStorage creates root if needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

// filePath maps key to a path that cannot escape the root.
func (s *LocalStorage) filePath(key string) (string, error) {
	clean := path.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Put writes obj.Body to disk, creating parent directories.
func (s *LocalStorage) Put(ctx context.Context, obj Object) error {
	p, err := s.filePath(obj.Key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	return os.WriteFile(p, obj.Body, 0644)
}

// Get reads a previously stored object.
func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	p, err := s.filePath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// Location returns the file path for key.
func (s *LocalStorage) Location(key string) string {
	p, err := s.filePath(key)
	if err != nil {
		return ""
	}
	return p
}
