// Package cache provides the byte-block LRU that sits behind
// blobstore.CachingStore.
//
// Blocks are keyed by bucket, object path, object version and block index.
// Memory can optionally be accounted against a resource.Controller so that
// the cache yields when the process-wide limit is reached.
package cache
