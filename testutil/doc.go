// Package testutil provides helpers for tests: a seeded generator of
// synthetic health-indicator datasets and FlakyStore, a BlobStore wrapper
// that injects range-read failures.
package testutil
