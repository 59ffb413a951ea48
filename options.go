package lakescan

import (
	"log/slog"
	"time"

	"github.com/hupe1980/lakescan/cache"
	"github.com/hupe1980/lakescan/internal/resource"
	"github.com/hupe1980/lakescan/sampling"
	"github.com/hupe1980/lakescan/scan"
)

const (
	// DefaultRelevantRows is the number of question-relevant rows attached
	// to a sample.
	DefaultRelevantRows = 5
	// DefaultSampleTTL is how long sample and query results stay cached.
	DefaultSampleTTL = 10 * time.Minute
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	cache            *cache.TTL
	windowSize       int64
	safetyCeiling    int
	windowTimeout    time.Duration
	ioLimit          int64
	memoryLimit      int64
	rc               *resource.Controller
	strategies       sampling.Set
	relevantRows     int
	sampleTTL        time.Duration
	warmInterval     time.Duration
}

func defaultOptions() options {
	return options{
		logger:           NoopLogger(),
		metricsCollector: NoopMetricsCollector{},
		windowSize:       scan.DefaultWindowSize,
		safetyCeiling:    scan.DefaultSafetyCeiling,
		windowTimeout:    scan.DefaultWindowTimeout,
		strategies:       sampling.DefaultSet(),
		relevantRows:     DefaultRelevantRows,
		sampleTTL:        DefaultSampleTTL,
		warmInterval:     cache.DefaultWarmInterval,
	}
}

// Option configures an Engine.
type Option func(*options)

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := lakescan.NewJSONLogger(slog.LevelInfo)
//	eng, _ := lakescan.New(stores, reg, lakescan.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithCache shares an existing cache with the engine. By default every
// Engine owns a private cache.
func WithCache(c *cache.TTL) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithWindowSize sets the byte length of scan windows (default 5 MiB).
func WithWindowSize(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.windowSize = n
		}
	}
}

// WithSafetyCeiling bounds the rows one scan accumulates (default 50,000).
func WithSafetyCeiling(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.safetyCeiling = n
		}
	}
}

// WithWindowTimeout bounds each window fetch (default 30s). Zero disables
// the deadline.
func WithWindowTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.windowTimeout = d
		}
	}
}

// WithIOLimit caps range-read throughput in bytes per second. Zero means
// unlimited.
func WithIOLimit(bytesPerSec int64) Option {
	return func(o *options) {
		if bytesPerSec >= 0 {
			o.ioLimit = bytesPerSec
		}
	}
}

// WithMemoryLimit bounds the bytes held by in-flight window buffers. A
// fetch waits while the budget is exhausted. Zero means unlimited.
func WithMemoryLimit(bytes int64) Option {
	return func(o *options) {
		if bytes >= 0 {
			o.memoryLimit = bytes
		}
	}
}

// WithResourceController sets the resource controller shared with other
// components, such as a block cache. It replaces the controller built from
// WithIOLimit and WithMemoryLimit.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithStrategies replaces the sampling strategies. The set is validated by New.
func WithStrategies(set sampling.Set) Option {
	return func(o *options) {
		o.strategies = set
	}
}

// WithRelevantRows sets how many question-relevant rows a sample carries.
// Zero disables ranking.
func WithRelevantRows(k int) Option {
	return func(o *options) {
		if k >= 0 {
			o.relevantRows = k
		}
	}
}

// WithSampleTTL sets how long sample and query results are cached. Zero
// disables result caching.
func WithSampleTTL(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.sampleTTL = d
		}
	}
}

// WithWarmInterval sets the period of the background cache warmer
// (default 10 minutes).
func WithWarmInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.warmInterval = d
		}
	}
}
