package testutil

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/lakescan/blobstore"
)

// ErrInjected is the default injected failure.
var ErrInjected = errors.New("injected fault error")

// Fault defines failure behavior for range reads of matching keys.
type Fault struct {
	// FailOffsets fails reads that start at any of these offsets.
	FailOffsets []int64
	// FailAfterReads fails every read after this many successful reads.
	// -1 disables.
	FailAfterReads int
	// FailOpen fails Open.
	FailOpen bool
	// Delay is applied before each read, honoring the context.
	Delay time.Duration
	Err   error
}

// FlakyStore is a BlobStore wrapper that can inject errors.
type FlakyStore struct {
	Store blobstore.BlobStore

	mu    sync.Mutex
	rules map[string]Fault // key pattern -> Fault
	reads int
}

// NewFlakyStore wraps store (a MemoryStore if nil).
func NewFlakyStore(store blobstore.BlobStore) *FlakyStore {
	if store == nil {
		store = blobstore.NewMemoryStore()
	}
	return &FlakyStore{Store: store, rules: make(map[string]Fault)}
}

// AddRule adds a fault for keys containing pattern. The last matching
// rule wins.
func (f *FlakyStore) AddRule(pattern string, fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fault.FailAfterReads == 0 && len(fault.FailOffsets) > 0 {
		fault.FailAfterReads = -1
	}
	f.rules[pattern] = fault
}

// Reads returns the number of range reads attempted.
func (f *FlakyStore) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

func (f *FlakyStore) fault(name string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var (
		found Fault
		ok    bool
	)
	for pattern, rule := range f.rules {
		if strings.Contains(name, pattern) {
			found, ok = rule, true
		}
	}
	if ok && found.Err == nil {
		found.Err = ErrInjected
	}
	return found, ok
}

func (f *FlakyStore) Open(ctx context.Context, name string) (blobstore.Blob, error) {
	fault, ok := f.fault(name)
	if ok && fault.FailOpen {
		return nil, fault.Err
	}
	b, err := f.Store.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &flakyBlob{Blob: b, fs: f, fault: Fault{FailAfterReads: -1}}, nil
	}
	return &flakyBlob{Blob: b, fs: f, fault: fault}, nil
}

func (f *FlakyStore) Stat(ctx context.Context, name string) (blobstore.ObjectInfo, error) {
	return f.Store.Stat(ctx, name)
}

func (f *FlakyStore) List(ctx context.Context, prefix string) ([]blobstore.ObjectInfo, error) {
	return f.Store.List(ctx, prefix)
}

func (f *FlakyStore) Put(ctx context.Context, name string, data []byte) error {
	return f.Store.Put(ctx, name, data)
}

type flakyBlob struct {
	blobstore.Blob
	fs    *FlakyStore
	fault Fault
	ok    int
}

func (b *flakyBlob) check(ctx context.Context, off int64) error {
	b.fs.mu.Lock()
	b.fs.reads++
	b.fs.mu.Unlock()

	if b.fault.Delay > 0 {
		t := time.NewTimer(b.fault.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	for _, o := range b.fault.FailOffsets {
		if o == off {
			return b.fault.Err
		}
	}
	if b.fault.FailAfterReads >= 0 && b.ok >= b.fault.FailAfterReads {
		return b.fault.Err
	}
	b.ok++
	return nil
}

func (b *flakyBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	if err := b.check(ctx, off); err != nil {
		return 0, err
	}
	return b.Blob.ReadAt(ctx, p, off)
}

func (b *flakyBlob) ReadRange(ctx context.Context, off, length int64) (io.ReadCloser, error) {
	if err := b.check(ctx, off); err != nil {
		return nil, err
	}
	return b.Blob.ReadRange(ctx, off, length)
}
