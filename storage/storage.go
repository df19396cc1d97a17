package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo describes one stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// Storage is the object store behind the file source and sink. Paths are
// slash separated and relative to the store's root.
type Storage interface {
	// Upload replaces the object at path with the contents of reader.
	Upload(ctx context.Context, path string, reader io.Reader) error
	// Download opens the object at path. A missing object yields a
	// NOT_FOUND AppError. The caller closes the reader.
	Download(ctx context.Context, path string) (io.ReadCloser, error)
	Exists(ctx context.Context, path string) (bool, error)
	// List returns the objects whose path starts with prefix, sorted by path.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}
