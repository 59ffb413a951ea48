package cache

import "context"

// CacheKey identifies one fixed-size block of a remote object.
// Version distinguishes object generations (size or last-modified change)
// so that a rewritten object never serves stale blocks.
type CacheKey struct {
	Bucket  string
	Path    string
	Version int64
	// Block is the block index within the object (offset / block size).
	Block uint64
}

// BlockCache is a byte-oriented cache for object blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key CacheKey) (b []byte, ok bool)
	// Set caches a block. Implementations may retain b; callers must treat it as immutable.
	Set(ctx context.Context, key CacheKey, b []byte)
	// Invalidate removes every entry matching predicate.
	Invalidate(predicate func(key CacheKey) bool)
}
