package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Memory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	require.NoError(t, c.AcquireMemory(50))
	assert.Equal(t, int64(50), c.MemoryUsage())

	require.NoError(t, c.AcquireMemory(40))
	assert.Equal(t, int64(90), c.MemoryUsage())

	// Limit exceeded
	assert.ErrorIs(t, c.AcquireMemory(20), ErrMemoryLimitExceeded)
	assert.False(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(90), c.MemoryUsage())

	c.ReleaseMemory(50)
	assert.Equal(t, int64(40), c.MemoryUsage())
	assert.True(t, c.TryAcquireMemory(20))
	assert.Equal(t, int64(60), c.MemoryUsage())
}

func TestController_WaitMemory(t *testing.T) {
	c := NewController(Config{MemoryLimitBytes: 100})

	assert.ErrorIs(t, c.WaitMemory(t.Context(), 101), ErrMemoryLimitExceeded)
	require.NoError(t, c.WaitMemory(t.Context(), 80))

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.WaitMemory(ctx, 30), context.DeadlineExceeded)
	assert.Equal(t, int64(80), c.MemoryUsage())

	done := make(chan error, 1)
	go func() { done <- c.WaitMemory(t.Context(), 30) }()
	c.ReleaseMemory(80)
	require.NoError(t, <-done)
	assert.Equal(t, int64(30), c.MemoryUsage())
}

func TestController_UnlimitedMemory(t *testing.T) {
	c := NewController(Config{})

	require.NoError(t, c.AcquireMemory(1000))
	c.ReleaseMemory(500)
	assert.Equal(t, int64(500), c.MemoryUsage())
}

func TestController_Background(t *testing.T) {
	c := NewController(Config{MaxBackgroundJobs: 2})

	require.NoError(t, c.AcquireBackground(t.Context()))
	require.NoError(t, c.AcquireBackground(t.Context()))
	assert.False(t, c.TryAcquireBackground())

	c.ReleaseBackground()
	assert.True(t, c.TryAcquireBackground())
}

func TestController_IOLargerThanBurst(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	// 1.5 MiB against a 1 MiB burst must not fail with "exceeds burst".
	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.AcquireIO(ctx, 3<<19))
	assert.Equal(t, int64(3<<19), c.IOBytes())
}

func TestController_IOCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 10})

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Error(t, c.AcquireIO(ctx, 100))
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireMemory(10))
	require.NoError(t, c.AcquireIO(t.Context(), 10))
	assert.True(t, c.TryAcquireBackground())
	c.ReleaseBackground()
	assert.Zero(t, c.MemoryUsage())
}
