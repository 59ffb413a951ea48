package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/lakescan/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarmer_RunOnceRefreshesLiveEntries(t *testing.T) {
	c := New()
	c.Set("datasets:count", 1, time.Hour)

	var n atomic.Int32
	w := NewWarmer(c, []Task{{
		Key: "datasets:count",
		TTL: time.Hour,
		Compute: func(context.Context) (any, error) {
			return int(n.Add(1)) + 10, nil
		},
	}})

	report, err := w.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"datasets:count"}, report.Refreshed)
	assert.Empty(t, report.Failed)

	v, ok := c.Get("datasets:count")
	require.True(t, ok)
	assert.Equal(t, 11, v)
}

func TestWarmer_FailedTaskKeepsPreviousEntry(t *testing.T) {
	c := New()
	c.Set("folders:list", []string{"a"}, time.Hour)
	boom := errors.New("list failed")

	w := NewWarmer(c, []Task{
		{Key: "folders:list", Compute: func(context.Context) (any, error) { return nil, boom }},
		{Key: "folders:totals", Compute: func(context.Context) (any, error) { return 3, nil }},
	})

	report, err := w.RunOnce(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"folders:totals"}, report.Refreshed)
	assert.ErrorIs(t, report.Failed["folders:list"], boom)

	v, ok := c.Get("folders:list")
	require.True(t, ok)
	assert.Equal(t, []string{"a"}, v)
}

func TestWarmer_InProgressGuard(t *testing.T) {
	c := New()
	started := make(chan struct{})
	release := make(chan struct{})

	w := NewWarmer(c, []Task{{
		Key: "slow",
		Compute: func(context.Context) (any, error) {
			close(started)
			<-release
			return 1, nil
		},
	}})

	errc := make(chan error, 1)
	go func() {
		_, err := w.RunOnce(context.Background())
		errc <- err
	}()

	<-started
	assert.True(t, w.Running())
	_, err := w.RunOnce(t.Context())
	assert.ErrorIs(t, err, ErrWarmInProgress)

	close(release)
	require.NoError(t, <-errc)
	assert.False(t, w.Running())
}

func TestWarmer_StartStop(t *testing.T) {
	c := New()
	var passes atomic.Int32

	w := NewWarmer(c, []Task{{
		Key:     "folders:totals",
		Compute: func(context.Context) (any, error) { return 1, nil },
	}},
		WithInterval(10*time.Millisecond),
		WithResourceController(resource.NewController(resource.Config{})),
		WithPassHook(func(WarmReport) { passes.Add(1) }),
	)

	w.Start(t.Context())
	w.Start(t.Context())
	assert.Eventually(t, func() bool { return passes.Load() >= 3 }, time.Second, 5*time.Millisecond)

	w.Stop()
	after := passes.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, passes.Load())

	_, ok := c.Get("folders:totals")
	assert.True(t, ok)

	w.Stop()
}

func TestWarmer_WarmOnStart(t *testing.T) {
	c := New()
	w := NewWarmer(c, []Task{{
		Key:     "datasets:count",
		Compute: func(context.Context) (any, error) { return 5, nil },
	}}, WithWarmOnStart())

	w.Start(t.Context())
	defer w.Stop()

	assert.Eventually(t, func() bool {
		_, ok := c.Get("datasets:count")
		return ok
	}, time.Second, 5*time.Millisecond)
}

func TestWarmer_Cancelled(t *testing.T) {
	c := New()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	w := NewWarmer(c, []Task{{Key: "k", Compute: func(context.Context) (any, error) { return 1, nil }}})
	_, err := w.RunOnce(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, w.Running())
}
