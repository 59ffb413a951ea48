package scan

import (
	"bytes"
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/hupe1980/lakescan/blobstore"
	"github.com/hupe1980/lakescan/filter"
	"github.com/hupe1980/lakescan/internal/resource"
	"github.com/hupe1980/lakescan/tabular"
	"github.com/hupe1980/lakescan/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const healthCSV = "state,county,year,measure,value\n" +
	"GA,Fulton,2021,diabetes,12.3\n" +
	"GA,Cobb,2020,asthma,8.1\n" +
	"CA,LA,2021,diabetes,15.0\n"

func newScanner(t *testing.T, store blobstore.BlobStore, opts ...Option) *Scanner {
	t.Helper()
	return NewScanner(NewRangeReader(blobstore.NewMux(store), nil, time.Second), opts...)
}

func put(t *testing.T, store blobstore.BlobStore, key string, data []byte) {
	t.Helper()
	require.NoError(t, store.Put(t.Context(), key, data))
}

func TestScanAll_HealthScenario(t *testing.T) {
	store := blobstore.NewMemoryStore()
	put(t, store, "health.csv", []byte(healthCSV))

	s := newScanner(t, store, WithWindowSize(16))
	res, err := s.ScanAll(t.Context(), Ref{Key: "health.csv"}, filter.Map{"state": "GA", "measure": "diabetes"}, 10)
	require.NoError(t, err)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, []string{"GA", "Fulton", "2021", "diabetes", "12.3"}, res.Rows[0].Values())
	assert.Equal(t, 1, res.TotalMatchCount())
	assert.True(t, res.Matched.Contains(0))
	assert.True(t, res.Complete)
	assert.False(t, res.CapReached)
	assert.Equal(t, int64(len(healthCSV)), res.BytesRead)
	assert.Equal(t, 3, res.Stats.Parsed)
	assert.NotEmpty(t, res.SessionID)
}

func TestScanAll_WindowBoundariesMatchSinglePass(t *testing.T) {
	data := testutil.NewRNG(7).GenerateDataset(testutil.DatasetSpec{Rows: 500, Quote: true, MalformedEvery: 37})
	store := blobstore.NewMemoryStore()
	put(t, store, "d.csv", data)

	want, _, wantStats := tabular.ParseChunk(string(data), tabular.ParseOptions{})

	for _, ws := range []int64{7, 64, 1000, 1 << 20} {
		s := newScanner(t, store, WithWindowSize(ws))
		res, err := s.ScanAll(t.Context(), Ref{Key: "d.csv"}, nil, 0)
		require.NoError(t, err)
		require.Len(t, res.Rows, len(want), "window %d", ws)
		for i := range want {
			assert.Equal(t, want[i].Values(), res.Rows[i].Values())
		}
		assert.Equal(t, wantStats.Dropped, res.Stats.Dropped)
	}
}

func TestScanAll_SafetyCeiling(t *testing.T) {
	data := testutil.RepeatRows("state,value", "GA,1", 1200)
	store := blobstore.NewMemoryStore()
	put(t, store, "big.csv", data)

	s := newScanner(t, store, WithWindowSize(100), WithSafetyCeiling(500))
	res, err := s.ScanAll(t.Context(), Ref{Key: "big.csv"}, filter.Map{"state": "GA"}, 10)
	require.NoError(t, err)

	assert.Len(t, res.Rows, 500)
	assert.True(t, res.CapReached)
	assert.False(t, res.Complete)
	assert.Less(t, res.BytesRead, int64(len(data)))
	assert.Equal(t, 10, res.Requested)
}

func TestScanAll_DefaultCeiling(t *testing.T) {
	data := testutil.RepeatRows("a", "1", DefaultSafetyCeiling+100)
	store := blobstore.NewMemoryStore()
	put(t, store, "x.csv", data)

	res, err := newScanner(t, store).ScanAll(t.Context(), Ref{Key: "x.csv"}, nil, 1)
	require.NoError(t, err)
	assert.Len(t, res.Rows, DefaultSafetyCeiling)
	assert.True(t, res.CapReached)
}

func TestScanAll_SkipsFailedWindow(t *testing.T) {
	data := testutil.RepeatRows("state,value", "GA,1", 100) // 12 + 100*5 bytes
	flaky := testutil.NewFlakyStore(nil)
	put(t, flaky, "f.csv", data)
	flaky.AddRule("f.csv", testutil.Fault{FailOffsets: []int64{100}})

	var skipped []WindowStats
	s := newScanner(t, flaky, WithWindowSize(100), WithWindowHook(func(ws WindowStats) {
		if ws.Err != nil {
			skipped = append(skipped, ws)
		}
	}))
	res, err := s.ScanAll(t.Context(), Ref{Key: "f.csv"}, filter.Map{"state": "GA"}, 0)
	require.NoError(t, err)

	assert.Equal(t, 1, res.SkippedWindows)
	require.Len(t, skipped, 1)
	assert.True(t, IsTransport(skipped[0].Err))
	assert.False(t, res.Complete)
	assert.Greater(t, len(res.Rows), 70)
	assert.Less(t, len(res.Rows), 100)
	for _, r := range res.Rows {
		assert.Equal(t, []string{"GA", "1"}, r.Values())
	}
}

func TestScanAll_LiteralQuoteDoesNotSwallowRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,item,state\n0,12\" pipe,GA\n")
	for i := 1; i < 2000; i++ {
		b.WriteString(strconv.Itoa(i) + ",bolt,GA\n")
	}
	store := blobstore.NewMemoryStore()
	put(t, store, "parts.csv", []byte(b.String()))

	res, err := newScanner(t, store, WithWindowSize(1024)).ScanAll(t.Context(), Ref{Key: "parts.csv"}, filter.Map{"state": "GA"}, 0)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2000)
	assert.Equal(t, []string{"0", `12" pipe`, "GA"}, res.Rows[0].Values())
	assert.Zero(t, res.Stats.Dropped)
	assert.True(t, res.Complete)
}

func TestScanAll_LostHeaderWindow(t *testing.T) {
	flaky := testutil.NewFlakyStore(nil)
	put(t, flaky, "h.csv", testutil.RepeatRows("a,b", "1,2", 50))
	flaky.AddRule("h.csv", testutil.Fault{FailOffsets: []int64{0}})

	res, err := newScanner(t, flaky, WithWindowSize(32)).ScanAll(t.Context(), Ref{Key: "h.csv"}, nil, 0)
	require.NoError(t, err)
	assert.Nil(t, res.Header)
	assert.Empty(t, res.Rows)
	assert.Equal(t, 1, res.SkippedWindows)
}

func TestScanAll_Cancellation(t *testing.T) {
	store := blobstore.NewMemoryStore()
	put(t, store, "c.csv", testutil.RepeatRows("a", "1", 1000))

	ctx, cancel := context.WithCancel(t.Context())
	s := newScanner(t, store, WithWindowSize(64), WithWindowHook(func(ws WindowStats) {
		if ws.Index == 2 {
			cancel()
		}
	}))
	res, err := s.ScanAll(ctx, Ref{Key: "c.csv"}, nil, 0)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 3, res.Windows)
	assert.False(t, res.Complete)
}

func TestScanAll_WindowTimeout(t *testing.T) {
	flaky := testutil.NewFlakyStore(nil)
	put(t, flaky, "slow.csv", []byte(healthCSV))
	flaky.AddRule("slow", testutil.Fault{FailAfterReads: -1, Delay: time.Second})

	s := NewScanner(NewRangeReader(blobstore.NewMux(flaky), nil, 20*time.Millisecond))
	res, err := s.ScanAll(t.Context(), Ref{Key: "slow.csv"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedWindows)
	assert.Empty(t, res.Rows)
}

func TestScanAll_Compressed(t *testing.T) {
	data := testutil.NewRNG(3).GenerateDataset(testutil.DatasetSpec{Rows: 300})
	want, _, _ := tabular.ParseChunk(string(data), tabular.ParseOptions{
		Match: func(r tabular.Row) bool { return filter.Matches(r, filter.Map{"state": "TX"}) },
	})

	for _, c := range []tabular.Compression{tabular.Gzip, tabular.Zstd, tabular.LZ4} {
		t.Run(c.String(), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := tabular.Compress(&buf, c)
			require.NoError(t, err)
			_, _ = w.Write(data)
			require.NoError(t, w.Close())

			key := map[tabular.Compression]string{tabular.Gzip: "d.csv.gz", tabular.Zstd: "d.csv.zst", tabular.LZ4: "d.csv.lz4"}[c]
			store := blobstore.NewMemoryStore()
			put(t, store, key, buf.Bytes())

			res, err := newScanner(t, store, WithWindowSize(256)).ScanAll(t.Context(), Ref{Key: key}, filter.Map{"state": "TX"}, 0)
			require.NoError(t, err)
			assert.Len(t, res.Rows, len(want))
			assert.True(t, res.Complete)
			assert.Positive(t, res.BytesRead)
			assert.LessOrEqual(t, res.BytesRead, int64(buf.Len()))
		})
	}
}

func TestScanAll_IOLimit(t *testing.T) {
	store := blobstore.NewMemoryStore()
	put(t, store, "h.csv", []byte(healthCSV))

	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 20})
	s := NewScanner(NewRangeReader(blobstore.NewMux(store), rc, 0), WithWindowSize(32))
	_, err := s.ScanAll(t.Context(), Ref{Key: "h.csv"}, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(len(healthCSV)), rc.IOBytes())
}

func TestScanAll_MemoryBudget(t *testing.T) {
	data := testutil.RepeatRows("state,value", "GA,1", 100)
	store := blobstore.NewMemoryStore()
	put(t, store, "m.csv", data)

	t.Run("released after each window", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
		s := NewScanner(NewRangeReader(blobstore.NewMux(store), rc, 0), WithWindowSize(64))
		res, err := s.ScanAll(t.Context(), Ref{Key: "m.csv"}, nil, 0)
		require.NoError(t, err)
		assert.Len(t, res.Rows, 100)
		assert.True(t, res.Complete)
		assert.Zero(t, rc.MemoryUsage())
	})

	t.Run("window larger than budget is skipped", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 32})
		var failed []error
		s := NewScanner(NewRangeReader(blobstore.NewMux(store), rc, 0), WithWindowSize(64),
			WithWindowHook(func(ws WindowStats) {
				if ws.Err != nil {
					failed = append(failed, ws.Err)
				}
			}))
		res, err := s.ScanAll(t.Context(), Ref{Key: "m.csv"}, nil, 0)
		require.NoError(t, err)
		assert.Empty(t, res.Rows)
		assert.Equal(t, res.Windows, res.SkippedWindows)
		require.NotEmpty(t, failed)
		assert.ErrorIs(t, failed[0], resource.ErrMemoryLimitExceeded)
	})

	t.Run("exhausted budget blocks until the context ends", func(t *testing.T) {
		rc := resource.NewController(resource.Config{MemoryLimitBytes: 64})
		require.NoError(t, rc.AcquireMemory(64))

		ctx, cancel := context.WithTimeout(t.Context(), 50*time.Millisecond)
		defer cancel()
		s := NewScanner(NewRangeReader(blobstore.NewMux(store), rc, 0), WithWindowSize(64))
		_, err := s.ScanAll(ctx, Ref{Key: "m.csv"}, nil, 0)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Equal(t, int64(64), rc.MemoryUsage())
	})
}

func TestScanAll_MissingObject(t *testing.T) {
	_, err := newScanner(t, blobstore.NewMemoryStore()).ScanAll(t.Context(), Ref{Key: "nope.csv"}, nil, 0)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestRangeReader_Fetch(t *testing.T) {
	store := blobstore.NewMemoryStore()
	put(t, store, "h.csv", []byte(healthCSV))
	r := NewRangeReader(blobstore.NewMux(store), nil, 0)

	data, err := r.Fetch(t.Context(), Ref{Key: "h.csv"}, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, "state", string(data))

	data, err = r.Fetch(t.Context(), Ref{Key: "h.csv"}, int64(len(healthCSV))-5, 1<<30)
	require.NoError(t, err)
	assert.Equal(t, "15.0\n", string(data))

	_, err = r.Fetch(t.Context(), Ref{Bucket: "b", Key: "missing.csv"}, 0, 10)
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "missing.csv", te.Key)
	assert.True(t, strings.Contains(te.Error(), "bytes=0-10"))
}
