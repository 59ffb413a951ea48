package lakescan

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/hupe1980/lakescan/cache"
	"github.com/hupe1980/lakescan/scan"
)

// Logger wraps slog.Logger with lakescan-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithDataset adds a dataset field to the logger.
func (l *Logger) WithDataset(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("dataset", name),
	}
}

// LogScan logs a progressive scan.
func (l *Logger) LogScan(ctx context.Context, res *scan.Result, duration time.Duration, err error) {
	if err != nil {
		l.ErrorContext(ctx, "scan failed",
			"error", err,
			"duration", duration,
		)
		return
	}
	if res.SkippedWindows > 0 {
		l.WarnContext(ctx, "scan completed with skipped windows",
			"session", res.SessionID,
			"object", res.Ref.String(),
			"windows", res.Windows,
			"skipped", res.SkippedWindows,
			"matched", res.TotalMatchCount(),
		)
		return
	}
	l.DebugContext(ctx, "scan completed",
		"session", res.SessionID,
		"object", res.Ref.String(),
		"windows", res.Windows,
		"matched", res.TotalMatchCount(),
		"cap_reached", res.CapReached,
		"duration", duration,
	)
}

// LogSample logs an intelligent sample request.
func (l *Logger) LogSample(ctx context.Context, dataset, strategy string, rows int, representativeness float64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "sample failed",
			"dataset", dataset,
			"strategy", strategy,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "sample completed",
			"dataset", dataset,
			"strategy", strategy,
			"rows", rows,
			"representativeness", representativeness,
		)
	}
}

// LogQuery logs a filtered query.
func (l *Logger) LogQuery(ctx context.Context, dataset string, filters, matched int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"dataset", dataset,
			"filters", filters,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "query completed",
			"dataset", dataset,
			"filters", filters,
			"matched", matched,
		)
	}
}

// LogWarm logs a cache warm pass.
func (l *Logger) LogWarm(ctx context.Context, report cache.WarmReport, err error) {
	if err != nil {
		l.WarnContext(ctx, "cache warm skipped",
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "cache warm completed",
			"refreshed", len(report.Refreshed),
			"failed", len(report.Failed),
			"duration", report.Duration,
		)
	}
}
