package lakescan

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/lakescan/blobstore"
	"github.com/hupe1980/lakescan/registry"
	"github.com/hupe1980/lakescan/scan"
	"github.com/hupe1980/lakescan/tabular"
)

// Lookup returns the registered dataset named ref. Unregistered references
// are treated as ad-hoc object keys; an "s3://bucket/key" reference names
// its bucket.
func (e *Engine) Lookup(ctx context.Context, ref string) (registry.Dataset, error) {
	d, err := e.registry.Get(ctx, ref)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, registry.ErrDatasetNotFound) {
		return registry.Dataset{}, err
	}
	return registry.Adhoc(ref, strings.HasPrefix(ref, "s3://")), nil
}

// Resolve maps a dataset to a single object: the prefix itself if it names
// an object, else the lexicographically first delimited object under it.
func (e *Engine) Resolve(ctx context.Context, d registry.Dataset) (scan.Ref, error) {
	store, err := e.stores.Store(d.Bucket)
	if err != nil {
		return scan.Ref{}, err
	}

	info, err := store.Stat(ctx, d.Prefix)
	switch {
	case err == nil:
		if info.Size == 0 {
			return scan.Ref{}, &NoDataError{Bucket: d.Bucket, Prefix: d.Prefix}
		}
		return scan.Ref{Bucket: d.Bucket, Key: d.Prefix, Size: info.Size}, nil
	case !errors.Is(err, blobstore.ErrNotFound):
		return scan.Ref{}, fmt.Errorf("stat %s/%s: %w", d.Bucket, d.Prefix, err)
	}

	prefix := d.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return scan.Ref{}, fmt.Errorf("list %s/%s: %w", d.Bucket, prefix, err)
	}
	for _, o := range objects {
		if tabular.IsDelimitedKey(o.Key) && o.Size > 0 {
			return scan.Ref{Bucket: d.Bucket, Key: o.Key, Size: o.Size}, nil
		}
	}
	return scan.Ref{}, &NoDataError{Bucket: d.Bucket, Prefix: d.Prefix, cause: blobstore.ErrNotFound}
}

func (e *Engine) locate(ctx context.Context, ref string) (registry.Dataset, scan.Ref, error) {
	d, err := e.Lookup(ctx, ref)
	if err != nil {
		return d, scan.Ref{}, err
	}
	obj, err := e.Resolve(ctx, d)
	return d, obj, err
}
