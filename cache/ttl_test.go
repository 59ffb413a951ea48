package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestTTL_Expiry(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", "v", 100*time.Millisecond)

	clock.Advance(50 * time.Millisecond)
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	clock.Advance(100 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTL_ExpiresAtExactTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	c.Set("k", 1, time.Second)

	clock.Advance(time.Second)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestTTL_RealClock(t *testing.T) {
	c := New()
	c.Set("k", "v", 100*time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", v)

	time.Sleep(150 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTL_SetReplaces(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Set("k", 1, time.Second)
	clock.Advance(900 * time.Millisecond)
	c.Set("k", 2, time.Second)
	clock.Advance(900 * time.Millisecond)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTL_DefaultTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now), WithDefaultTTL(time.Minute))
	c.Set("k", 1, 0)

	clock.Advance(59 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)
	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestTTL_Invalidate(t *testing.T) {
	c := New()
	c.Set("sample:health/a.csv:fast", 1, time.Minute)
	c.Set("sample:health/b.csv:fast", 2, time.Minute)
	c.Set("query:health/a.csv:state=GA", 3, time.Minute)
	c.Set("folders:list", 4, time.Minute)

	assert.Equal(t, 2, c.Invalidate("health/a.csv"))
	_, ok := c.Get("sample:health/a.csv:fast")
	assert.False(t, ok)
	_, ok = c.Get("query:health/a.csv:state=GA")
	assert.False(t, ok)
	_, ok = c.Get("sample:health/b.csv:fast")
	assert.True(t, ok)

	assert.Equal(t, 0, c.Invalidate("nothing-matches"))

	assert.Equal(t, 2, c.Invalidate(""))
	assert.Equal(t, 0, c.Len())
}

func TestTTL_Clear(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Clear()
	assert.Empty(t, c.Keys())
}

func TestTTL_Keys(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	c.Set("short", 1, time.Second)
	c.Set("long", 2, time.Hour)

	clock.Advance(2 * time.Second)
	assert.Equal(t, []string{"long"}, c.Keys())
}

func TestTTL_Stats(t *testing.T) {
	c := New()
	c.Set("a", 1, time.Minute)
	c.Get("a")
	c.Get("a")
	c.Get("missing")
	c.Invalidate("a")

	st := c.Stats()
	assert.Equal(t, uint64(2), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, uint64(1), st.Sets)
	assert.Equal(t, uint64(1), st.Invalidations)
	assert.Equal(t, 0, st.Entries)
}

func TestGetAs(t *testing.T) {
	c := New()
	c.Set("n", 42, time.Minute)

	n, ok := GetAs[int](c, "n")
	require.True(t, ok)
	assert.Equal(t, 42, n)

	_, ok = GetAs[string](c, "n")
	assert.False(t, ok)
}

func TestTTL_GetOrCompute(t *testing.T) {
	c := New()
	var calls atomic.Int32
	compute := func(context.Context) (any, error) {
		calls.Add(1)
		return "value", nil
	}

	v, hit, err := c.GetOrCompute(t.Context(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, "value", v)

	v, hit, err = c.GetOrCompute(t.Context(), "k", time.Minute, compute)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "value", v)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTTL_GetOrComputeErrorNotCached(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	_, _, err := c.GetOrCompute(t.Context(), "k", time.Minute, func(context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, c.Len())
}

func TestTTL_GetOrComputeShared(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, _, err := c.GetOrCompute(context.Background(), "k", time.Minute, func(context.Context) (any, error) {
				calls.Add(1)
				<-release
				return 7, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 7, v)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(8))
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestTTL_Concurrent(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				key := string(rune('a' + (i+j)%8))
				c.Set(key, j, time.Minute)
				c.Get(key)
				if j%50 == 0 {
					c.Invalidate(key)
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 8)
}
