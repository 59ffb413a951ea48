package scan

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/hupe1980/lakescan/blobstore"
	"github.com/hupe1980/lakescan/internal/resource"
)

// Ref identifies a remote object.
type Ref struct {
	Bucket string `json:"bucket"`
	Key    string `json:"key"`
	// Size is the object length in bytes if known, else 0.
	Size int64 `json:"size,omitempty"`
}

func (r Ref) String() string {
	if r.Bucket == "" {
		return r.Key
	}
	return r.Bucket + "/" + r.Key
}

// Window is a byte range with an inclusive end.
type Window struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Len returns the window length in bytes.
func (w Window) Len() int64 { return w.End - w.Start + 1 }

// Stores resolves a bucket to the store serving it. *blobstore.Mux
// implements it.
type Stores interface {
	Store(bucket string) (blobstore.BlobStore, error)
}

// RangeReader fetches byte ranges of remote objects. It performs no retries.
type RangeReader struct {
	stores  Stores
	rc      *resource.Controller
	timeout time.Duration
}

// NewRangeReader creates a reader. rc may be nil (no IO limit, no memory
// budget) and a non-positive timeout disables the per-fetch deadline.
func NewRangeReader(stores Stores, rc *resource.Controller, timeout time.Duration) *RangeReader {
	return &RangeReader{stores: stores, rc: rc, timeout: timeout}
}

// Open resolves and opens ref. The returned Object serves repeated window
// fetches without re-opening the object.
func (r *RangeReader) Open(ctx context.Context, ref Ref) (*Object, error) {
	store, err := r.stores.Store(ref.Bucket)
	if err != nil {
		return nil, err
	}
	blob, err := store.Open(ctx, ref.Key)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", ref, err)
	}
	return &Object{ref: ref, blob: blob, reader: r}, nil
}

// Fetch reads bytes [start, endInclusive] of ref. The buffer is released
// from the memory budget on return.
func (r *RangeReader) Fetch(ctx context.Context, ref Ref, start, endInclusive int64) ([]byte, error) {
	obj, err := r.Open(ctx, ref)
	if err != nil {
		return nil, &TransportError{Bucket: ref.Bucket, Key: ref.Key, Start: start, End: endInclusive, Err: err}
	}
	defer obj.Close()
	data, err := obj.Fetch(ctx, start, endInclusive)
	obj.Release(data)
	return data, err
}

// reserve holds n bytes of the memory budget for a stream buffer.
func (r *RangeReader) reserve(ctx context.Context, n int64) error {
	return r.rc.WaitMemory(ctx, n)
}

func (r *RangeReader) release(n int64) { r.rc.ReleaseMemory(n) }

// Object is an opened remote object.
type Object struct {
	ref    Ref
	blob   blobstore.Blob
	reader *RangeReader
}

// Ref returns the object reference with its size filled in.
func (o *Object) Ref() Ref {
	ref := o.ref
	ref.Size = o.blob.Size()
	return ref
}

// Size returns the object length.
func (o *Object) Size() int64 { return o.blob.Size() }

// Close releases the object.
func (o *Object) Close() error { return o.blob.Close() }

// Fetch reads bytes [start, endInclusive]. The end is clamped to the object
// size. Any failure, including a timeout, is a *TransportError.
//
// The returned buffer is reserved against the memory budget; the caller
// hands it back with Release once the bytes are consumed. Fetch blocks while
// the budget is exhausted.
func (o *Object) Fetch(ctx context.Context, start, endInclusive int64) ([]byte, error) {
	size := o.blob.Size()
	if start >= size || endInclusive < start {
		return nil, nil
	}
	endInclusive = min(endInclusive, size-1)
	length := endInclusive - start + 1

	wrap := func(err error) error {
		return &TransportError{Bucket: o.ref.Bucket, Key: o.ref.Key, Start: start, End: endInclusive, Err: err}
	}

	if err := o.reader.reserve(ctx, length); err != nil {
		return nil, wrap(err)
	}
	data, err := o.read(ctx, start, length)
	if err != nil {
		o.reader.release(length)
		return nil, wrap(err)
	}
	o.reader.release(length - int64(len(data)))
	return data, nil
}

func (o *Object) read(ctx context.Context, start, length int64) ([]byte, error) {
	if err := o.reader.rc.AcquireIO(ctx, int(length)); err != nil {
		return nil, err
	}

	if o.reader.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.reader.timeout)
		defer cancel()
	}

	rc, err := o.blob.ReadRange(ctx, start, length)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := readAll(rc, make([]byte, 0, length))
	if int64(len(data)) > length {
		data = data[:length]
	}
	return data, err
}

// Release returns the memory reserved for a buffer returned by Fetch.
func (o *Object) Release(data []byte) {
	o.reader.release(int64(len(data)))
}

// Stream returns a reader over the whole object.
func (o *Object) Stream(ctx context.Context) (io.ReadCloser, error) {
	rc, err := o.blob.ReadRange(ctx, 0, o.blob.Size())
	if err != nil {
		return nil, &TransportError{Bucket: o.ref.Bucket, Key: o.ref.Key, Start: 0, End: o.blob.Size() - 1, Err: err}
	}
	return rc, nil
}

func readAll(r io.Reader, b []byte) ([]byte, error) {
	for {
		if len(b) == cap(b) {
			b = append(b, 0)[:len(b)]
		}
		n, err := r.Read(b[len(b):cap(b)])
		b = b[:len(b)+n]
		if err != nil {
			if err == io.EOF {
				return b, nil
			}
			return b, err
		}
	}
}
