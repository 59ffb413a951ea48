package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/google/uuid"
	"github.com/hupe1980/lakescan/filter"
	"github.com/hupe1980/lakescan/tabular"
)

const (
	// DefaultWindowSize is the byte length of one scan window (5 MiB).
	DefaultWindowSize = 5 << 20
	// DefaultSafetyCeiling bounds the rows a single scan accumulates.
	DefaultSafetyCeiling = 50000
	// DefaultWindowTimeout bounds one window fetch.
	DefaultWindowTimeout = 30 * time.Second
)

// WindowStats describes one processed window. Err is set for skipped windows.
type WindowStats struct {
	SessionID string
	Index     int
	Window    Window
	Bytes     int
	Rows      int
	Matched   int
	Duration  time.Duration
	Err       error
}

// Result is the outcome of a scan or a sample read.
type Result struct {
	SessionID string
	Ref       Ref
	Header    *tabular.Header
	Rows      []tabular.Row
	// Matched holds the ordinals (0-based data row positions within the
	// scanned bytes) of every accepted row.
	Matched        *roaring.Bitmap
	Windows        int
	SkippedWindows int
	// BytesRead counts the object bytes transferred. For compressed
	// objects these are compressed bytes.
	BytesRead int64
	// DecodedBytes counts the bytes handed to the line splitter.
	DecodedBytes int64
	// ConsumedBytes counts the decoded bytes of the lines handed to the
	// parser. It trails DecodedBytes when a row limit stopped parsing
	// inside a window.
	ConsumedBytes int64
	Stats         tabular.ParseStats
	// Requested is the caller's requested match count. Scans are bounded by
	// the safety ceiling, not by Requested.
	Requested  int
	CapReached bool
	// Complete reports that every byte of the object was parsed.
	Complete bool
}

// ConsumedObjectBytes returns the share of BytesRead whose lines were
// parsed, in object bytes.
func (r *Result) ConsumedObjectBytes() int64 {
	if r == nil || r.DecodedBytes <= 0 {
		return 0
	}
	if r.ConsumedBytes >= r.DecodedBytes {
		return r.BytesRead
	}
	return int64(math.Round(float64(r.BytesRead) * float64(r.ConsumedBytes) / float64(r.DecodedBytes)))
}

// TotalMatchCount returns the number of accepted rows.
func (r *Result) TotalMatchCount() int {
	if r == nil || r.Matched == nil {
		return 0
	}
	return int(r.Matched.GetCardinality())
}

// Scanner runs progressive scans and bounded sample reads.
type Scanner struct {
	reader     *RangeReader
	logger     *slog.Logger
	windowSize int64
	ceiling    int
	onWindow   func(WindowStats)
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithWindowSize sets the window length in bytes.
func WithWindowSize(n int64) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.windowSize = n
		}
	}
}

// WithSafetyCeiling sets the maximum rows a scan accumulates.
func WithSafetyCeiling(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.ceiling = n
		}
	}
}

// WithLogger sets the logger. Nil discards.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scanner) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWindowHook registers a callback invoked after every window.
func WithWindowHook(fn func(WindowStats)) Option {
	return func(s *Scanner) { s.onWindow = fn }
}

// NewScanner creates a scanner reading through reader.
func NewScanner(reader *RangeReader, opts ...Option) *Scanner {
	s := &Scanner{
		reader:     reader,
		logger:     slog.New(slog.DiscardHandler),
		windowSize: DefaultWindowSize,
		ceiling:    DefaultSafetyCeiling,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WindowSize returns the configured window length.
func (s *Scanner) WindowSize() int64 { return s.windowSize }

// SafetyCeiling returns the configured row ceiling.
func (s *Scanner) SafetyCeiling() int { return s.ceiling }

// session accumulates rows across windows of one scan.
type session struct {
	res      *Result
	parser   *tabular.Parser
	pred     *filter.Predicate
	f        filter.Map
	lines    tabular.LineBuffer
	limit    int
	headless bool // a window was lost before the header was captured
}

func (s *Scanner) newSession(ref Ref, f filter.Map, limit int) *session {
	return &session{
		res: &Result{
			SessionID: uuid.NewString(),
			Ref:       ref,
			Matched:   roaring.New(),
		},
		parser: tabular.NewParser(nil),
		f:      f,
		limit:  limit,
	}
}

// feed parses lines until the row limit is reached. It returns the rows
// accepted and the number of lines left unread.
func (ss *session) feed(lines []string) (matched, rest int) {
	for i, line := range lines {
		if ss.full() {
			return matched, len(lines) - i
		}
		ss.res.ConsumedBytes += int64(len(line)) + 1
		if ss.headless {
			continue
		}
		hadHeader := ss.parser.Header() != nil
		row, ok := ss.parser.Line(line)
		if !hadHeader && ss.parser.Header() != nil {
			ss.res.Header = ss.parser.Header()
			ss.pred = filter.Compile(ss.f, ss.res.Header)
		}
		if !ok {
			continue
		}
		ordinal := uint32(ss.parser.Stats().Parsed - 1)
		if !ss.pred.Match(row) {
			continue
		}
		ss.res.Matched.Add(ordinal)
		ss.res.Rows = append(ss.res.Rows, row)
		matched++
	}
	return matched, 0
}

func (ss *session) full() bool { return len(ss.res.Rows) >= ss.limit }

// skip records a lost window and resynchronizes the line buffer.
func (ss *session) skip() {
	ss.res.SkippedWindows++
	if ss.parser.Header() == nil {
		ss.headless = true
	}
	ss.lines.Resync()
}

func (ss *session) finish() *Result {
	ss.res.Stats = ss.parser.Stats()
	ss.res.Stats.Matched = len(ss.res.Rows)
	return ss.res
}

// ScanAll scans the whole object window by window, sequentially, and
// returns every row matching f, up to the safety ceiling. A failed window is
// logged and skipped. The context is checked between windows; on
// cancellation the partial result is returned with the context error.
func (s *Scanner) ScanAll(ctx context.Context, ref Ref, f filter.Map, requestedMaxMatches int) (*Result, error) {
	obj, err := s.reader.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	ss := s.newSession(obj.Ref(), f, s.ceiling)
	ss.res.Requested = requestedMaxMatches

	if c := tabular.CompressionFor(ref.Key); c != tabular.None {
		err = s.scanStream(ctx, obj, c, ss)
	} else {
		err = s.scanRanges(ctx, obj, ss)
	}
	res := ss.finish()

	if res.CapReached {
		s.logger.InfoContext(ctx, "scan stopped at safety ceiling",
			"session", res.SessionID, "object", ref.String(), "ceiling", s.ceiling,
			"bytes_read", res.BytesRead, "size", obj.Size(), "error", ErrSafetyCapReached)
	}
	s.logger.DebugContext(ctx, "scan finished",
		"session", res.SessionID, "object", ref.String(), "windows", res.Windows,
		"skipped", res.SkippedWindows, "matched", len(res.Rows), "complete", res.Complete)
	return res, err
}

func (s *Scanner) scanRanges(ctx context.Context, obj *Object, ss *session) error {
	size := obj.Size()
	index := 0
	for start := int64(0); start < size; start += s.windowSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		w := Window{Start: start, End: min(start+s.windowSize, size) - 1}
		last := w.End == size-1

		began := time.Now()
		data, err := obj.Fetch(ctx, w.Start, w.End)
		ws := WindowStats{SessionID: ss.res.SessionID, Index: index, Window: w, Bytes: len(data)}
		index++
		ss.res.Windows++

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			ws.Err, ws.Duration = err, time.Since(began)
			s.logger.WarnContext(ctx, "skipping window", "session", ss.res.SessionID,
				"start", w.Start, "end", w.End, "error", err)
			ss.skip()
			s.emit(ws)
			continue
		}
		ss.res.BytesRead += int64(len(data))
		ss.res.DecodedBytes += int64(len(data))

		lines := ss.lines.Feed(data)
		obj.Release(data)
		if last {
			if tail, ok := ss.lines.Flush(); ok {
				lines = append(lines, tail)
			}
		}
		before := ss.parser.Stats().Parsed
		matched, rest := ss.feed(lines)
		ws.Rows, ws.Matched, ws.Duration = ss.parser.Stats().Parsed-before, matched, time.Since(began)
		s.emit(ws)

		if ss.full() && (!last || rest > 0) {
			ss.res.CapReached = true
			return nil
		}
	}
	ss.res.Complete = ss.res.SkippedWindows == 0
	return nil
}

// scanStream scans a compressed object by decompressing it into windows of
// the configured size. A broken stream cannot be resumed, so the first read
// error ends the scan.
func (s *Scanner) scanStream(ctx context.Context, obj *Object, c tabular.Compression, ss *session) error {
	body, err := obj.Stream(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	counted := &countingReader{r: body}
	dec, err := tabular.Decompress(counted, c)
	if err != nil {
		return &TransportError{Bucket: ss.res.Ref.Bucket, Key: ss.res.Ref.Key, End: obj.Size() - 1, Err: err}
	}
	defer dec.Close()

	if err := s.reader.reserve(ctx, s.windowSize); err != nil {
		return &TransportError{Bucket: ss.res.Ref.Bucket, Key: ss.res.Ref.Key, End: obj.Size() - 1, Err: err}
	}
	defer s.reader.release(s.windowSize)

	buf := make([]byte, s.windowSize)
	var offset int64
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		began := time.Now()
		n, rerr := io.ReadFull(dec, buf)
		eof := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		w := Window{Start: offset, End: offset + int64(n) - 1}
		offset += int64(n)
		ws := WindowStats{SessionID: ss.res.SessionID, Index: index, Window: w, Bytes: n}

		if rerr != nil && !eof {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			ss.res.Windows++
			ws.Err, ws.Duration = rerr, time.Since(began)
			s.logger.WarnContext(ctx, "compressed stream failed", "session", ss.res.SessionID,
				"offset", w.Start, "error", rerr)
			ss.skip()
			s.emit(ws)
			ss.res.BytesRead = counted.n
			return nil
		}
		if n == 0 && eof {
			break
		}
		ss.res.Windows++
		ss.res.DecodedBytes += int64(n)

		lines := ss.lines.Feed(buf[:n])
		if eof {
			if tail, ok := ss.lines.Flush(); ok {
				lines = append(lines, tail)
			}
		}
		before := ss.parser.Stats().Parsed
		matched, rest := ss.feed(lines)
		ws.Rows, ws.Matched, ws.Duration = ss.parser.Stats().Parsed-before, matched, time.Since(began)
		s.emit(ws)

		if ss.full() && (!eof || rest > 0) {
			ss.res.CapReached = true
			ss.res.BytesRead = counted.n
			return nil
		}
		if eof {
			break
		}
	}
	ss.res.BytesRead = counted.n
	ss.res.Complete = ss.res.SkippedWindows == 0
	return nil
}

func (s *Scanner) emit(ws WindowStats) {
	s.logger.Debug("window processed", "session", ws.SessionID, "index", ws.Index,
		"start", ws.Window.Start, "end", ws.Window.End, "bytes", ws.Bytes,
		"rows", ws.Rows, "matched", ws.Matched, "duration", ws.Duration)
	if s.onWindow != nil {
		s.onWindow(ws)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
