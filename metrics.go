package lakescan

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// The metrics subpackage provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordWindow is called after each scan window. err is set for skipped
	// windows.
	RecordWindow(bytes int, duration time.Duration, err error)

	// RecordScan is called after each progressive scan or bounded read.
	// mode is "progressive" or "bounded".
	RecordScan(mode string, rows int, capReached bool, duration time.Duration, err error)

	// RecordSample is called after each intelligent sample.
	RecordSample(strategy string, rows int, representativeness float64, duration time.Duration)

	// RecordCache is called on every engine cache lookup.
	RecordCache(hit bool)

	// RecordWarm is called after each cache warm pass.
	RecordWarm(refreshed, failed int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordWindow(int, time.Duration, error)             {}
func (NoopMetricsCollector) RecordScan(string, int, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordSample(string, int, float64, time.Duration)   {}
func (NoopMetricsCollector) RecordCache(bool)                                   {}
func (NoopMetricsCollector) RecordWarm(int, int, time.Duration)                 {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and tests without external dependencies.
type BasicMetricsCollector struct {
	Windows        atomic.Int64
	WindowBytes    atomic.Int64
	SkippedWindows atomic.Int64
	Scans          atomic.Int64
	ScanErrors     atomic.Int64
	CapReached     atomic.Int64
	Samples        atomic.Int64
	SampleRows     atomic.Int64
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
	WarmPasses     atomic.Int64
	WarmFailures   atomic.Int64
}

// RecordWindow implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWindow(bytes int, _ time.Duration, err error) {
	b.Windows.Add(1)
	b.WindowBytes.Add(int64(bytes))
	if err != nil {
		b.SkippedWindows.Add(1)
	}
}

// RecordScan implements MetricsCollector.
func (b *BasicMetricsCollector) RecordScan(_ string, _ int, capReached bool, _ time.Duration, err error) {
	b.Scans.Add(1)
	if err != nil {
		b.ScanErrors.Add(1)
	}
	if capReached {
		b.CapReached.Add(1)
	}
}

// RecordSample implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSample(_ string, rows int, _ float64, _ time.Duration) {
	b.Samples.Add(1)
	b.SampleRows.Add(int64(rows))
}

// RecordCache implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCache(hit bool) {
	if hit {
		b.CacheHits.Add(1)
	} else {
		b.CacheMisses.Add(1)
	}
}

// RecordWarm implements MetricsCollector.
func (b *BasicMetricsCollector) RecordWarm(_, failed int, _ time.Duration) {
	b.WarmPasses.Add(1)
	b.WarmFailures.Add(int64(failed))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		Windows:        b.Windows.Load(),
		WindowBytes:    b.WindowBytes.Load(),
		SkippedWindows: b.SkippedWindows.Load(),
		Scans:          b.Scans.Load(),
		ScanErrors:     b.ScanErrors.Load(),
		CapReached:     b.CapReached.Load(),
		Samples:        b.Samples.Load(),
		SampleRows:     b.SampleRows.Load(),
		CacheHits:      b.CacheHits.Load(),
		CacheMisses:    b.CacheMisses.Load(),
		WarmPasses:     b.WarmPasses.Load(),
		WarmFailures:   b.WarmFailures.Load(),
	}
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	Windows        int64
	WindowBytes    int64
	SkippedWindows int64
	Scans          int64
	ScanErrors     int64
	CapReached     int64
	Samples        int64
	SampleRows     int64
	CacheHits      int64
	CacheMisses    int64
	WarmPasses     int64
	WarmFailures   int64
}
