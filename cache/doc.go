// Package cache provides the in-process result cache used by lakescan.
//
// TTL is a string-keyed store with per-entry expiry. An entry is visible
// while now-created < ttl and is never updated in place: Set replaces it.
// Invalidate removes every key that contains a pattern as a substring, which
// lets callers drop all entries of one dataset or one route at once:
//
//	c := cache.New()
//	c.Set("sample:health/places.csv:balanced", res, 10*time.Minute)
//	c.Invalidate("health/places.csv")
//
// Warmer periodically recomputes a fixed list of expensive keys whether or
// not they have expired. A warm pass never overlaps with itself; a second
// concurrent RunOnce returns ErrWarmInProgress.
package cache
