// Package resource governs the shared resources of a scanning process.
//
//   - Memory: bytes held by block caches (non-blocking, fail-fast)
//   - Background jobs: cache warm passes and refreshes (semaphore)
//   - IO: remote range-read throughput (token bucket)
//
// All methods handle a nil Controller gracefully - they become no-ops.
//
//	rc := resource.NewController(resource.Config{
//	    IOLimitBytesPerSec: 50 << 20,
//	})
//	if err := rc.AcquireIO(ctx, len(window)); err != nil {
//	    return err
//	}
package resource
