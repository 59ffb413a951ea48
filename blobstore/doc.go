// Package blobstore provides the object-storage abstraction lakescan reads
// delimited data files through.
//
// BlobStore is the interface for opening, listing and stat-ing objects.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-memory store for tests
//   - LocalStore: afero-backed filesystem store
//   - CachingStore: block cache in front of any BlobStore
//   - Mux: routes bucket names to stores
//   - s3.Store: Amazon S3 with range reads
//   - minio.Store: MinIO and other S3-compatible storage
//
// # Range Reads
//
// Every Blob supports ReadAt and ReadRange so that callers can fetch bounded
// byte windows without downloading the whole object:
//
//	blob, _ := store.Open(ctx, "health/places.csv")
//	rc, _ := blob.ReadRange(ctx, 0, 5<<20)
//	defer rc.Close()
package blobstore
