package registry

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
)

// ErrDatasetNotFound is returned when no dataset has the requested name.
var ErrDatasetNotFound = errors.New("dataset not found")

// Dataset locates a logical dataset in object storage.
type Dataset struct {
	Name      string `json:"name" yaml:"name"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	Prefix    string `json:"prefix" yaml:"prefix"`
	SizeBytes int64  `json:"size_bytes,omitempty" yaml:"size_bytes"`
}

// Folder returns the first path segment of the prefix, or "" for keys at
// the bucket root.
func (d Dataset) Folder() string {
	p := strings.TrimPrefix(d.Prefix, "/")
	if i := strings.IndexByte(p, '/'); i > 0 {
		return p[:i]
	}
	return ""
}

// Validate checks the required fields.
func (d Dataset) Validate() error {
	if d.Name == "" {
		return errors.New("dataset name is required")
	}
	if d.Prefix == "" {
		return fmt.Errorf("dataset %q: prefix is required", d.Name)
	}
	if d.SizeBytes < 0 {
		return fmt.Errorf("dataset %q: negative size", d.Name)
	}
	return nil
}

// Registry looks up datasets.
type Registry interface {
	Get(ctx context.Context, name string) (Dataset, error)
	List(ctx context.Context) ([]Dataset, error)
	Put(ctx context.Context, d Dataset) error
}

// MemoryRegistry is an in-memory Registry. It is safe for concurrent use.
type MemoryRegistry struct {
	mu       sync.RWMutex
	datasets map[string]Dataset
}

// NewMemoryRegistry creates a registry holding datasets.
func NewMemoryRegistry(datasets ...Dataset) *MemoryRegistry {
	r := &MemoryRegistry{datasets: make(map[string]Dataset, len(datasets))}
	for _, d := range datasets {
		r.datasets[d.Name] = d
	}
	return r
}

func (r *MemoryRegistry) Get(_ context.Context, name string) (Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.datasets[name]
	if !ok {
		return Dataset{}, fmt.Errorf("%w: %s", ErrDatasetNotFound, name)
	}
	return d, nil
}

// List returns all datasets sorted by name.
func (r *MemoryRegistry) List(_ context.Context) ([]Dataset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Dataset, 0, len(r.datasets))
	for _, d := range r.datasets {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRegistry) Put(_ context.Context, d Dataset) error {
	if err := d.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.datasets[d.Name] = d
	return nil
}

// Adhoc returns a Dataset for a raw "bucket/key" or "key" reference that is
// not registered. The first path segment is the bucket when withBucket is
// set.
func Adhoc(ref string, withBucket bool) Dataset {
	ref = strings.TrimPrefix(ref, "s3://")
	d := Dataset{Name: ref, Prefix: ref}
	if withBucket {
		if i := strings.IndexByte(ref, '/'); i > 0 {
			d.Bucket, d.Prefix = ref[:i], ref[i+1:]
		}
	}
	d.Prefix = strings.TrimPrefix(path.Clean("/"+d.Prefix), "/")
	return d
}
