package lakescan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/hupe1980/lakescan/cache"
	"github.com/hupe1980/lakescan/filter"
	"github.com/hupe1980/lakescan/internal/resource"
	"github.com/hupe1980/lakescan/lexical"
	"github.com/hupe1980/lakescan/lexical/bm25"
	"github.com/hupe1980/lakescan/profile"
	"github.com/hupe1980/lakescan/registry"
	"github.com/hupe1980/lakescan/sampling"
	"github.com/hupe1980/lakescan/scan"
	"github.com/hupe1980/lakescan/tabular"
)

// Engine samples and queries delimited datasets in object storage.
// It is safe for concurrent use.
type Engine struct {
	stores   scan.Stores
	registry registry.Registry
	scanner  *scan.Scanner
	cache    *cache.TTL
	warmer   *cache.Warmer
	rc       *resource.Controller
	opts     options
	closed   atomic.Bool
}

// New creates an Engine reading objects through stores and resolving
// dataset names through reg. A nil reg treats every reference as an object
// key.
func New(stores scan.Stores, reg registry.Registry, optFns ...Option) (*Engine, error) {
	if stores == nil {
		return nil, errors.New("lakescan: stores are required")
	}
	o := defaultOptions()
	for _, fn := range optFns {
		fn(&o)
	}
	if err := o.strategies.Validate(); err != nil {
		return nil, fmt.Errorf("lakescan: %w", err)
	}
	if o.rc == nil && o.memoryLimit > 0 && o.memoryLimit < o.windowSize {
		return nil, fmt.Errorf("lakescan: memory limit %d is smaller than the window size %d", o.memoryLimit, o.windowSize)
	}
	if reg == nil {
		reg = registry.NewMemoryRegistry()
	}
	if o.cache == nil {
		o.cache = cache.New()
	}

	if o.rc == nil {
		o.rc = resource.NewController(resource.Config{
			IOLimitBytesPerSec: o.ioLimit,
			MemoryLimitBytes:   o.memoryLimit,
		})
	}

	e := &Engine{
		stores:   stores,
		registry: reg,
		cache:    o.cache,
		opts:     o,
		rc:       o.rc,
	}

	reader := scan.NewRangeReader(stores, e.rc, o.windowTimeout)
	e.scanner = scan.NewScanner(reader,
		scan.WithWindowSize(o.windowSize),
		scan.WithSafetyCeiling(o.safetyCeiling),
		scan.WithLogger(o.logger.Logger),
		scan.WithWindowHook(func(ws scan.WindowStats) {
			o.metricsCollector.RecordWindow(ws.Bytes, ws.Duration, ws.Err)
		}),
	)

	e.warmer = cache.NewWarmer(e.cache, e.WarmTasks(),
		cache.WithInterval(o.warmInterval),
		cache.WithWarmLogger(o.logger.Logger),
		cache.WithResourceController(e.rc),
		cache.WithPassHook(func(r cache.WarmReport) {
			o.metricsCollector.RecordWarm(len(r.Refreshed), len(r.Failed), r.Duration)
		}),
	)
	return e, nil
}

// Strategies returns the configured sampling strategies.
func (e *Engine) Strategies() sampling.Set { return e.opts.strategies }

// GetIntelligentSample returns a representative sample of the dataset ref.
//
// strategyName selects a strategy by name; "" or "auto" lets the question
// and dataset size decide. When the question yields filters the whole
// object is scanned for matching rows; a scan without matches falls back
// to an unfiltered bounded read. A request that obtains no data returns a
// zero SampleResult and a nil error. Only context errors and ErrClosed are
// returned.
func (e *Engine) GetIntelligentSample(ctx context.Context, ref, strategyName, question string) (*SampleResult, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}
	if strategyName == "" {
		strategyName = sampling.Auto
	}

	key := sampleKey(ref, strategyName, question)
	if e.opts.sampleTTL > 0 {
		if v, ok := cache.GetAs[*SampleResult](e.cache, key); ok {
			e.opts.metricsCollector.RecordCache(true)
			return v, nil
		}
		e.opts.metricsCollector.RecordCache(false)
	}

	began := time.Now()
	log := e.opts.logger.WithDataset(ref)

	d, obj, err := e.locate(ctx, ref)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		log.WarnContext(ctx, "dataset unavailable", "error", err)
		return &SampleResult{}, nil
	}

	size := d.SizeBytes
	if size <= 0 {
		size = obj.Size
	}
	if strategyName != sampling.Auto {
		if _, err := e.opts.strategies.ByName(strategyName); err != nil {
			log.WarnContext(ctx, "unknown strategy, selecting automatically", "strategy", strategyName)
		}
	}
	strategy := e.opts.strategies.Select(size, strategyName, question)
	filters := filter.Extract(question)
	mode := sampling.ModeFor(filters)

	var (
		res     *scan.Result
		applied bool
	)
	if mode == sampling.Progressive {
		res, err = e.scan(ctx, obj, filters, strategy.TargetRows)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.LogSample(ctx, ref, strategy.Name, 0, 0, err)
			return &SampleResult{}, nil
		}
		applied = res.TotalMatchCount() > 0
		if !applied {
			log.InfoContext(ctx, "no rows matched filters, falling back to bounded sample",
				"filters", filter.Describe(filters, res.Header))
			mode = sampling.Bounded
		}
	}
	if mode == sampling.Bounded {
		res, err = e.readSample(ctx, obj, strategy.TargetRows)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.LogSample(ctx, ref, strategy.Name, 0, 0, err)
			return &SampleResult{}, nil
		}
	}
	if len(res.Rows) == 0 {
		log.WarnContext(ctx, "sample produced no rows", "object", obj.String())
		return &SampleResult{}, nil
	}

	stats, quality := profile.Analyze(res.Rows)
	est := profile.EstimateTotalRows(obj.Size, res.ConsumedObjectBytes(), res.Stats.Parsed, res.Complete)
	out := &SampleResult{
		Dataset:            d.Name,
		Bucket:             obj.Bucket,
		Key:                obj.Key,
		Strategy:           strategy,
		Mode:               mode.String(),
		Question:           question,
		Filters:            filters,
		FiltersApplied:     applied,
		Columns:            columnsOf(res.Header),
		Rows:               res.Rows,
		EstimatedTotalRows: est,
		ColumnStats:        stats,
		Quality:            quality,
		Representativeness: profile.Representativeness(len(res.Rows), est, stats, strategy.Multiplier),
		Scan:               summarize(res),
	}
	if strings.TrimSpace(question) != "" && e.opts.relevantRows > 0 {
		out.Relevant = e.rank(ctx, question, res.Rows)
	}

	e.opts.metricsCollector.RecordSample(strategy.Name, len(out.Rows), out.Representativeness, time.Since(began))
	log.LogSample(ctx, ref, strategy.Name, len(out.Rows), out.Representativeness, nil)
	if e.opts.sampleTTL > 0 {
		e.cache.Set(key, out, e.opts.sampleTTL)
	}
	return out, nil
}

// QueryWithFilters scans the whole object of dataset ref and returns up to
// maxRows rows matching f (all scanned matches if maxRows <= 0), the
// description of every active filter and the total number of matches seen.
func (e *Engine) QueryWithFilters(ctx context.Context, ref string, f filter.Map, maxRows int) (*QueryResult, error) {
	if e.closed.Load() {
		return nil, ErrClosed
	}

	key := queryKey(ref, f, maxRows)
	if e.opts.sampleTTL > 0 {
		if v, ok := cache.GetAs[*QueryResult](e.cache, key); ok {
			e.opts.metricsCollector.RecordCache(true)
			return v, nil
		}
		e.opts.metricsCollector.RecordCache(false)
	}

	log := e.opts.logger.WithDataset(ref)
	d, obj, err := e.locate(ctx, ref)
	if err != nil {
		log.LogQuery(ctx, ref, len(f.Active()), 0, err)
		return nil, err
	}

	res, err := e.scan(ctx, obj, f, maxRows)
	if err != nil {
		log.LogQuery(ctx, ref, len(f.Active()), 0, err)
		return nil, err
	}

	rows := res.Rows
	if maxRows > 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	out := &QueryResult{
		Dataset:         d.Name,
		Columns:         columnsOf(res.Header),
		Rows:            rows,
		MatchedFilters:  filter.Describe(f, res.Header),
		TotalMatchCount: res.TotalMatchCount(),
		Scan:            summarize(res),
	}
	log.LogQuery(ctx, ref, len(f.Active()), out.TotalMatchCount, nil)
	if e.opts.sampleTTL > 0 {
		e.cache.Set(key, out, e.opts.sampleTTL)
	}
	return out, nil
}

func (e *Engine) scan(ctx context.Context, obj scan.Ref, f filter.Map, requested int) (*scan.Result, error) {
	began := time.Now()
	res, err := e.scanner.ScanAll(ctx, obj, f, requested)
	rows, capped := 0, false
	if res != nil {
		rows, capped = len(res.Rows), res.CapReached
	}
	e.opts.metricsCollector.RecordScan(sampling.Progressive.String(), rows, capped, time.Since(began), err)
	if err != nil {
		e.opts.logger.LogScan(ctx, res, time.Since(began), err)
		return nil, err
	}
	e.opts.logger.LogScan(ctx, res, time.Since(began), nil)
	return res, nil
}

func (e *Engine) readSample(ctx context.Context, obj scan.Ref, target int) (*scan.Result, error) {
	began := time.Now()
	res, err := e.scanner.ReadSample(ctx, obj, target)
	rows := 0
	if res != nil {
		rows = len(res.Rows)
	}
	e.opts.metricsCollector.RecordScan(sampling.Bounded.String(), rows, false, time.Since(began), err)
	return res, err
}

func (e *Engine) rank(ctx context.Context, question string, rows []tabular.Row) []RelevantRow {
	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.Text()
	}
	idx := bm25.New()
	defer idx.Close()

	hits, err := lexical.Rank(idx, question, texts, e.opts.relevantRows)
	if err != nil {
		e.opts.logger.WarnContext(ctx, "relevance ranking failed", "error", err)
		return nil
	}
	out := make([]RelevantRow, len(hits))
	for i, h := range hits {
		out[i] = RelevantRow{Index: int(h.DocID), Score: h.Score, Row: rows[h.DocID]}
	}
	return out
}

// MemoryUsage returns the bytes currently reserved against the engine's
// memory budget by window buffers and any block cache sharing its
// resource controller.
func (e *Engine) MemoryUsage() int64 { return e.rc.MemoryUsage() }

// Cache returns the engine's result cache.
func (e *Engine) Cache() *cache.TTL { return e.cache }

// CacheGet returns the cached value for key.
func (e *Engine) CacheGet(key string) (any, bool) {
	v, ok := e.cache.Get(key)
	e.opts.metricsCollector.RecordCache(ok)
	return v, ok
}

// CacheSet caches value under key for ttl.
func (e *Engine) CacheSet(key string, value any, ttl time.Duration) {
	e.cache.Set(key, value, ttl)
}

// CacheInvalidate removes every key containing pattern. An empty pattern
// clears the cache.
func (e *Engine) CacheInvalidate(pattern string) int {
	return e.cache.Invalidate(pattern)
}

// CacheClear removes every cached entry.
func (e *Engine) CacheClear() {
	e.cache.Clear()
}

// StartWarming starts the background cache warmer.
func (e *Engine) StartWarming(ctx context.Context) {
	e.warmer.Start(ctx)
}

// Warm runs one warm pass now. It returns cache.ErrWarmInProgress if a pass
// is already running.
func (e *Engine) Warm(ctx context.Context) (cache.WarmReport, error) {
	report, err := e.warmer.RunOnce(ctx)
	e.opts.logger.LogWarm(ctx, report, err)
	return report, err
}

// Close stops the warmer and rejects further requests. It is idempotent.
func (e *Engine) Close() error {
	if e == nil || !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	e.warmer.Stop()
	return nil
}

func sampleKey(ref, strategy, question string) string {
	return "sample:" + ref + ":" + strategy + ":" + strings.ToLower(strings.TrimSpace(question))
}

func queryKey(ref string, f filter.Map, maxRows int) string {
	keys := f.Active()
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, f[k])
	}
	return fmt.Sprintf("query:%s:%s:%d", ref, strings.Join(parts, "&"), maxRows)
}
