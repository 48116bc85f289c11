// Package storage handles the worker's file surfaces: a local scratch
// directory for intermediate artifacts and an optional S3 upload of finished
// outputs. It defines the Storage port and local disk and S3 adapters.
package storage

import (
	"context"
)

// Storage is the file storage port used by the job runner.
type Storage interface {
	// ScratchDir returns the directory that relative output paths are
	// resolved under.
	ScratchDir() string

	// Cleanup removes the given files, typically the partial outputs of a
	// failed job. It keeps going when individual files fail to delete and
	// returns the first error.
	Cleanup(ctx context.Context, paths []string) error

	// Upload copies a finished artifact to the configured object store and
	// returns its public URL. Returns ErrUploadNotConfigured when no store
	// is configured.
	Upload(ctx context.Context, localPath, key string) (url string, err error)
}
