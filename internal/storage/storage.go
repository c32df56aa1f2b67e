// Package storage provides request-scoped temporary files and the object
// stores that hold cached reference recordings.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by ObjectStore.Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// TempStorage manages temporary files created while serving one request.
type TempStorage interface {
	// SaveTemp saves data to a temporary file and returns the file path.
	// The name parameter is used as a hint for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the specified temporary files.
	// It continues cleanup even if some files fail to delete.
	CleanupTemp(ctx context.Context, paths []string) error
}

// ObjectStore is a flat key/value store for binary objects.
type ObjectStore interface {
	// Get returns the object stored at key, or ErrObjectNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores data at key, replacing any previous object.
	Put(ctx context.Context, key string, data []byte) error

	// Count returns the number of stored objects.
	Count(ctx context.Context) (int, error)

	// Location describes the store for logs and status output.
	Location() string
}
