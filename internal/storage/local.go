package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrUploadNotConfigured is returned when an upload is attempted without an
// object store configured.
var ErrUploadNotConfigured = errors.New("upload storage is not configured")

// LocalStorage implements the Storage port on local disk only. Uploads are
// unsupported unless wrapped by S3Storage.
type LocalStorage struct {
	scratchDir string
}

// NewLocalStorage creates a LocalStorage rooted at scratchDir, creating the
// directory if needed. An empty scratchDir falls back to a subdirectory of
// os.TempDir().
func NewLocalStorage(scratchDir string) (*LocalStorage, error) {
	if scratchDir == "" {
		scratchDir = filepath.Join(os.TempDir(), "framemill")
	}

	if err := os.MkdirAll(scratchDir, 0750); err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}

	return &LocalStorage{scratchDir: scratchDir}, nil
}

// ScratchDir returns the scratch directory path.
func (s *LocalStorage) ScratchDir() string {
	return s.scratchDir
}

// Cleanup removes the given files. It continues even if some files fail to
// delete, returning the first error encountered.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove scratch file %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// Upload is not supported by LocalStorage and returns ErrUploadNotConfigured.
func (s *LocalStorage) Upload(_ context.Context, _, _ string) (string, error) {
	return "", ErrUploadNotConfigured
}
