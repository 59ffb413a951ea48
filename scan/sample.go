package scan

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/hupe1980/lakescan/tabular"
)

// ReadSample reads up to targetRows unfiltered rows without scanning the
// whole object. An object that fits in one window is read with a single
// range. A larger object is read with two ranges: half the target from the
// head, the rest from a window starting at the midpoint, whose partial first
// line is discarded. A failure of the head range is returned; a failure of
// the midpoint range is logged and skipped.
func (s *Scanner) ReadSample(ctx context.Context, ref Ref, targetRows int) (*Result, error) {
	if targetRows <= 0 {
		targetRows = 1
	}
	obj, err := s.reader.Open(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	ss := s.newSession(obj.Ref(), nil, min(targetRows, s.ceiling))
	ss.res.Requested = targetRows

	if c := tabular.CompressionFor(ref.Key); c != tabular.None {
		err = s.sampleStream(ctx, obj, c, ss)
	} else {
		err = s.sampleRanges(ctx, obj, ss)
	}
	res := ss.finish()
	s.logger.DebugContext(ctx, "sample read", "session", res.SessionID, "object", ref.String(),
		"rows", len(res.Rows), "windows", res.Windows, "bytes_read", res.BytesRead, "complete", res.Complete)
	return res, err
}

func (s *Scanner) sampleRanges(ctx context.Context, obj *Object, ss *session) error {
	size := obj.Size()
	if size == 0 {
		ss.res.Complete = true
		return nil
	}

	single := size <= s.windowSize
	headLimit := ss.limit
	if !single {
		headLimit = max(1, ss.limit/2)
	}

	head := Window{Start: 0, End: min(s.windowSize, size) - 1}
	data, err := s.fetchWindow(ctx, obj, ss, 0, head)
	if err != nil {
		return err
	}
	ss.res.DecodedBytes += int64(len(data))
	lines := ss.lines.Feed(data)
	obj.Release(data)
	if single {
		if tail, ok := ss.lines.Flush(); ok {
			lines = append(lines, tail)
		}
	}
	_, rest := ss.feedLimited(lines, headLimit)

	if single {
		ss.res.Complete = rest == 0
		return nil
	}
	if ss.full() || ss.res.Header == nil {
		return nil
	}

	mid := Window{Start: size / 2, End: min(size/2+s.windowSize, size) - 1}
	if mid.Start <= head.End {
		mid.Start = head.End + 1
	}
	if mid.Start > mid.End {
		return nil
	}

	ss.lines.Resync()
	data, err = s.fetchWindow(ctx, obj, ss, 1, mid)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		ss.res.SkippedWindows++
		s.logger.WarnContext(ctx, "skipping sample window", "session", ss.res.SessionID,
			"start", mid.Start, "end", mid.End, "error", err)
		return nil
	}
	ss.res.DecodedBytes += int64(len(data))
	lines = ss.lines.Feed(data)
	obj.Release(data)
	if mid.End == size-1 {
		if tail, ok := ss.lines.Flush(); ok {
			lines = append(lines, tail)
		}
	}
	ss.feedLimited(lines, ss.limit)
	return nil
}

// sampleStream reads a compressed object's head: up to two windows of
// decompressed bytes.
func (s *Scanner) sampleStream(ctx context.Context, obj *Object, c tabular.Compression, ss *session) error {
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
	for index := 0; index < 2 && len(ss.res.Rows) < ss.limit; index++ {
		began := time.Now()
		n, rerr := io.ReadFull(dec, buf)
		eof := errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF)
		if rerr != nil && !eof {
			ss.res.BytesRead = counted.n
			return &TransportError{Bucket: ss.res.Ref.Bucket, Key: ss.res.Ref.Key, Start: offset, End: offset + s.windowSize - 1, Err: rerr}
		}
		if n == 0 {
			ss.res.Complete = true
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
		matched, rest := ss.feedLimited(lines, ss.limit)
		s.emit(WindowStats{
			SessionID: ss.res.SessionID, Index: index, Window: Window{Start: offset, End: offset + int64(n) - 1},
			Bytes: n, Rows: ss.parser.Stats().Parsed - before, Matched: matched, Duration: time.Since(began),
		})
		offset += int64(n)
		if eof {
			ss.res.Complete = rest == 0
			break
		}
	}
	ss.res.BytesRead = counted.n
	return nil
}

func (s *Scanner) fetchWindow(ctx context.Context, obj *Object, ss *session, index int, w Window) ([]byte, error) {
	began := time.Now()
	data, err := obj.Fetch(ctx, w.Start, w.End)
	ss.res.Windows++
	ss.res.BytesRead += int64(len(data))
	s.emit(WindowStats{
		SessionID: ss.res.SessionID, Index: index, Window: w,
		Bytes: len(data), Duration: time.Since(began), Err: err,
	})
	return data, err
}

// feedLimited feeds lines until limit rows are accumulated.
func (ss *session) feedLimited(lines []string, limit int) (matched, rest int) {
	prev := ss.limit
	ss.limit = limit
	defer func() { ss.limit = prev }()
	return ss.feed(lines)
}
