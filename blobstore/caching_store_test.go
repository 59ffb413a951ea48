package blobstore

import (
	"bytes"
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/lakescan/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockBlob struct {
	data      []byte
	reads     int
	readBytes int
}

func (m *mockBlob) Close() error { return nil }
func (m *mockBlob) Size() int64  { return int64(len(m.data)) }
func (m *mockBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	m.reads++
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	m.readBytes += n
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
func (m *mockBlob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data[off : off+length])), nil
}

type mockStore struct {
	blobs map[string]*mockBlob
	opens int
}

func (m *mockStore) Open(_ context.Context, name string) (Blob, error) {
	m.opens++
	if b, ok := m.blobs[name]; ok {
		return b, nil
	}
	return nil, ErrNotFound
}
func (m *mockStore) Stat(_ context.Context, name string) (ObjectInfo, error) {
	if b, ok := m.blobs[name]; ok {
		return ObjectInfo{Key: name, Size: b.Size()}, nil
	}
	return ObjectInfo{}, ErrNotFound
}
func (m *mockStore) Put(_ context.Context, name string, data []byte) error {
	if m.blobs == nil {
		m.blobs = make(map[string]*mockBlob)
	}
	m.blobs[name] = &mockBlob{data: data}
	return nil
}
func (m *mockStore) List(context.Context, string) ([]ObjectInfo, error) { return nil, nil }

func TestCachingStore_ReadAt(t *testing.T) {
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 255)
	}

	inner := &mockStore{blobs: map[string]*mockBlob{"test": {data: data}}}
	c := cache.NewLRUBlockCache(1024*1024, nil)
	store := NewCachingStore(inner, c, "bucket", 256)

	blob, err := store.Open(t.Context(), "test")
	require.NoError(t, err)

	// First block is fetched whole
	buf := make([]byte, 100)
	n, err := blob.ReadAt(t.Context(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[:100], buf)

	mBlob := inner.blobs["test"]
	assert.Equal(t, 1, mBlob.reads)
	assert.Equal(t, 256, mBlob.readBytes)

	// Same range again is a cache hit
	_, err = blob.ReadAt(t.Context(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, mBlob.reads)

	// Spanning blocks 0 and 1 fetches only block 1
	buf2 := make([]byte, 100)
	n, err = blob.ReadAt(t.Context(), buf2, 200)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[200:300], buf2)
	assert.Equal(t, 2, mBlob.reads)
	assert.Equal(t, 512, mBlob.readBytes)
}

func TestCachingStore_ShortTail(t *testing.T) {
	data := []byte("hello")
	inner := &mockStore{blobs: map[string]*mockBlob{"small": {data: data}}}
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), "", 256)

	blob, err := store.Open(t.Context(), "small")
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := blob.ReadAt(t.Context(), buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, n)
	assert.Equal(t, data, buf[:n])
}

func TestCachingStore_ReadRange(t *testing.T) {
	data := []byte("state,county\nGA,Fulton\nGA,Cobb\n")
	inner := &mockStore{blobs: map[string]*mockBlob{"h.csv": {data: data}}}
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), "", 8)

	blob, err := store.Open(t.Context(), "h.csv")
	require.NoError(t, err)

	rc, err := blob.ReadRange(t.Context(), 13, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "GA,Fulton\nGA,Cobb\n", string(got))
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	inner := &mockStore{blobs: map[string]*mockBlob{"a": {data: []byte("aaaa")}}}
	lru := cache.NewLRUBlockCache(1024, nil)
	store := NewCachingStore(inner, lru, "b", 4)

	blob, err := store.Open(t.Context(), "a")
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = blob.ReadAt(t.Context(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, lru.Len())

	require.NoError(t, store.Put(t.Context(), "a", []byte("bbbb")))
	assert.Equal(t, 0, lru.Len())

	blob, err = store.Open(t.Context(), "a")
	require.NoError(t, err)
	_, err = blob.ReadAt(t.Context(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "bbbb", string(buf))
}

// inflightBlob records the peak number of concurrent ReadAt calls.
type inflightBlob struct {
	mockBlob
	inflight atomic.Int32
	peak     atomic.Int32
	calls    atomic.Int32
}

func (b *inflightBlob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	n := b.inflight.Add(1)
	defer b.inflight.Add(-1)
	for {
		peak := b.peak.Load()
		if n <= peak || b.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	b.calls.Add(1)
	time.Sleep(5 * time.Millisecond)
	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	c := copy(p, b.data[off:])
	if c < len(p) {
		return c, io.EOF
	}
	return c, nil
}

type inflightStore struct {
	mockStore
	blob *inflightBlob
}

func (s *inflightStore) Open(context.Context, string) (Blob, error) { return s.blob, nil }

func TestCachingStore_OneBackendRequestAtATime(t *testing.T) {
	data := bytes.Repeat([]byte("0123456789abcdef"), 3) // 48 bytes, blocks of 8
	inner := &inflightStore{blob: &inflightBlob{mockBlob: mockBlob{data: data}}}
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024, nil), "", 8)

	blob, err := store.Open(t.Context(), "x")
	require.NoError(t, err)

	// Cache blocks 0, 2 and 4 so that 1, 3 and 5 form separate runs.
	block := make([]byte, 8)
	for _, off := range []int64{0, 16, 32} {
		_, err := blob.ReadAt(t.Context(), block, off)
		require.NoError(t, err)
	}
	inner.blob.calls.Store(0)

	buf := make([]byte, 48)
	n, err := blob.ReadAt(t.Context(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 48, n)
	assert.Equal(t, data, buf)
	assert.Equal(t, int32(3), inner.blob.calls.Load())
	assert.Equal(t, int32(1), inner.blob.peak.Load())
}
