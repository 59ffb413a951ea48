package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lakescan/internal/resource"
)

// DefaultWarmInterval is the period between background warm passes.
const DefaultWarmInterval = 10 * time.Minute

// ErrWarmInProgress is returned by RunOnce while another pass is running.
var ErrWarmInProgress = errors.New("cache: warm pass already in progress")

// Task recomputes one cache key.
type Task struct {
	Key     string
	TTL     time.Duration
	Compute func(ctx context.Context) (any, error)
}

// WarmReport summarizes one warm pass.
type WarmReport struct {
	Refreshed []string
	Failed    map[string]error
	Duration  time.Duration
}

// Warmer runs Tasks against a TTL cache on a fixed interval.
type Warmer struct {
	cache    *TTL
	tasks    []Task
	interval time.Duration
	logger   *slog.Logger
	rc       *resource.Controller
	onPass   func(WarmReport)
	eager    bool

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// WarmerOption configures a Warmer.
type WarmerOption func(*Warmer)

// WithInterval sets the period between passes.
func WithInterval(d time.Duration) WarmerOption {
	return func(w *Warmer) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithWarmLogger sets the logger. Nil discards.
func WithWarmLogger(l *slog.Logger) WarmerOption {
	return func(w *Warmer) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithResourceController makes each pass hold a background job slot.
func WithResourceController(rc *resource.Controller) WarmerOption {
	return func(w *Warmer) { w.rc = rc }
}

// WithPassHook registers a callback invoked after every completed pass.
func WithPassHook(fn func(WarmReport)) WarmerOption {
	return func(w *Warmer) { w.onPass = fn }
}

// WithWarmOnStart runs a pass as soon as Start is called.
func WithWarmOnStart() WarmerOption {
	return func(w *Warmer) { w.eager = true }
}

// NewWarmer creates a warmer for tasks.
func NewWarmer(c *TTL, tasks []Task, opts ...WarmerOption) *Warmer {
	w := &Warmer{
		cache:    c,
		tasks:    tasks,
		interval: DefaultWarmInterval,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Running reports whether a pass is in progress.
func (w *Warmer) Running() bool { return w.running.Load() }

// RunOnce recomputes every task and stores the results, regardless of
// whether the current entries have expired. A failed task leaves its
// previous entry untouched.
func (w *Warmer) RunOnce(ctx context.Context) (WarmReport, error) {
	if !w.running.CompareAndSwap(false, true) {
		w.logger.DebugContext(ctx, "warm pass skipped", "reason", "already running")
		return WarmReport{}, ErrWarmInProgress
	}
	defer w.running.Store(false)

	if err := w.rc.AcquireBackground(ctx); err != nil {
		return WarmReport{}, err
	}
	defer w.rc.ReleaseBackground()

	began := time.Now()
	report := WarmReport{Failed: make(map[string]error)}
	for _, t := range w.tasks {
		if err := ctx.Err(); err != nil {
			report.Duration = time.Since(began)
			return report, err
		}
		v, err := t.Compute(ctx)
		if err != nil {
			report.Failed[t.Key] = err
			w.logger.WarnContext(ctx, "warm task failed", "key", t.Key, "error", err)
			continue
		}
		w.cache.Set(t.Key, v, t.TTL)
		report.Refreshed = append(report.Refreshed, t.Key)
	}
	report.Duration = time.Since(began)

	w.logger.InfoContext(ctx, "cache warmed",
		"refreshed", len(report.Refreshed), "failed", len(report.Failed), "duration", report.Duration)
	if w.onPass != nil {
		w.onPass(report)
	}
	return report, nil
}

// Start launches the background loop. It is a no-op if already started.
func (w *Warmer) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.loop(ctx, w.done)
}

// Stop ends the background loop and waits for a running pass to return.
func (w *Warmer) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (w *Warmer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	if w.eager {
		w.pass(ctx)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pass(ctx)
		}
	}
}

func (w *Warmer) pass(ctx context.Context) {
	if _, err := w.RunOnce(ctx); err != nil && !errors.Is(err, ErrWarmInProgress) && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "warm pass failed", "error", err)
	}
}
