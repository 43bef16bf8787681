package storage

import (
	"context"
	"errors"
)

// ErrNotFound is wrapped by Read and Delete when nothing is stored at path.
var ErrNotFound = errors.New("not found")

// Storage holds one object per record. Paths are slash-separated and
// relative to the backend's root (a directory or a bucket prefix).
type Storage interface {
	Read(ctx context.Context, path string) ([]byte, error)
	// Write replaces the object at path as a whole.
	Write(ctx context.Context, path string, data []byte) error
	Delete(ctx context.Context, path string) error
	// List returns the sorted paths of the objects directly under prefix.
	// A prefix with no objects yields an empty result, not an error.
	List(ctx context.Context, prefix string) ([]string, error)
	Exists(ctx context.Context, path string) (bool, error)
}

var (
	_ Storage = (*LocalStorage)(nil)
	_ Storage = (*S3Storage)(nil)
)
