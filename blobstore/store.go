package blobstore

import (
	"context"
	"io"
	"os"
	"time"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations should return an error that satisfies `errors.Is(err, ErrNotFound)`.
// The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// ObjectInfo describes a remote object as returned by listing and stat calls.
type ObjectInfo struct {
	// Key is the object key relative to the store root.
	Key string
	// Size is the object size in bytes.
	Size int64
	// LastModified is when the object was last written.
	LastModified time.Time
}

// BlobStore is an abstraction for reading delimited data objects from a
// bucket-like container. Implementations must be safe for concurrent use.
type BlobStore interface {
	// Open opens a blob for reading. The returned Blob carries the object size
	// observed at open time; the object may change between range reads.
	Open(ctx context.Context, name string) (Blob, error)
	// Stat returns metadata for a single object.
	Stat(ctx context.Context, name string) (ObjectInfo, error)
	// List returns all objects whose key starts with prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
	// Put writes a blob atomically.
	Put(ctx context.Context, name string, data []byte) error
}

// Blob is a read-only handle to a remote object.
type Blob interface {
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
	// ReadAt reads len(p) bytes starting at offset off.
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	// ReadRange returns a reader for length bytes starting at off.
	ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error)
}
