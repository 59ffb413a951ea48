package lakescan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hupe1980/lakescan/blobstore"
	"github.com/hupe1980/lakescan/cache"
	"github.com/hupe1980/lakescan/registry"
)

// Keys of the aggregates refreshed by the cache warmer.
const (
	KeyDatasetCount = "datasets:count"
	KeyFolderList   = "folders:list"
	KeyFolderTotals = "folders:totals"
)

// FolderTotal aggregates the objects under one top-level folder.
type FolderTotal struct {
	Folder   string `json:"folder"`
	Datasets int    `json:"datasets"`
	Objects  int    `json:"objects"`
	Bytes    int64  `json:"bytes"`
}

// WarmTasks returns the aggregates kept warm by the background warmer:
// the dataset count, the folder list and per-folder object totals.
func (e *Engine) WarmTasks() []cache.Task {
	ttl := 2 * e.opts.warmInterval
	return []cache.Task{
		{Key: KeyDatasetCount, TTL: ttl, Compute: func(ctx context.Context) (any, error) {
			ds, err := e.registry.List(ctx)
			if err != nil {
				return nil, err
			}
			return len(ds), nil
		}},
		{Key: KeyFolderList, TTL: ttl, Compute: func(ctx context.Context) (any, error) {
			return e.folders(ctx)
		}},
		{Key: KeyFolderTotals, TTL: ttl, Compute: func(ctx context.Context) (any, error) {
			return e.folderTotals(ctx)
		}},
	}
}

// DatasetCount returns the number of registered datasets, from the cache
// when warm.
func (e *Engine) DatasetCount(ctx context.Context) (int, error) {
	v, err := e.warmValue(ctx, KeyDatasetCount)
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

// Folders returns the sorted top-level folders of registered datasets, from
// the cache when warm.
func (e *Engine) Folders(ctx context.Context) ([]string, error) {
	v, err := e.warmValue(ctx, KeyFolderList)
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// FolderTotals returns per-folder object totals, from the cache when warm.
func (e *Engine) FolderTotals(ctx context.Context) ([]FolderTotal, error) {
	v, err := e.warmValue(ctx, KeyFolderTotals)
	if err != nil {
		return nil, err
	}
	return v.([]FolderTotal), nil
}

func (e *Engine) warmValue(ctx context.Context, key string) (any, error) {
	for _, t := range e.WarmTasks() {
		if t.Key != key {
			continue
		}
		v, hit, err := e.cache.GetOrCompute(ctx, key, t.TTL, t.Compute)
		e.opts.metricsCollector.RecordCache(hit)
		return v, err
	}
	return nil, fmt.Errorf("unknown warm key %q", key)
}

func (e *Engine) folders(ctx context.Context) ([]string, error) {
	ds, err := e.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	folders := []string{}
	for _, d := range ds {
		f := d.Folder()
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		folders = append(folders, f)
	}
	sort.Strings(folders)
	return folders, nil
}

func (e *Engine) folderTotals(ctx context.Context) ([]FolderTotal, error) {
	ds, err := e.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	began := time.Now()
	byFolder := make(map[string]*FolderTotal)
	for _, d := range ds {
		f := d.Folder()
		t, ok := byFolder[f]
		if !ok {
			t = &FolderTotal{Folder: f}
			byFolder[f] = t
		}
		t.Datasets++

		store, err := e.stores.Store(d.Bucket)
		if err != nil {
			return nil, err
		}
		objects, err := datasetObjects(ctx, store, d)
		if err != nil {
			return nil, err
		}
		for _, o := range objects {
			t.Objects++
			t.Bytes += o.Size
		}
	}

	out := make([]FolderTotal, 0, len(byFolder))
	for _, t := range byFolder {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Folder < out[j].Folder })
	e.opts.logger.DebugContext(ctx, "folder totals computed", "folders", len(out), "duration", time.Since(began))
	return out, nil
}

// datasetObjects returns the object a dataset prefix names, or the objects
// under the prefix read as a folder. A folder prefix never matches sibling
// keys that merely share its text ("cdc" does not cover "cdc2/").
func datasetObjects(ctx context.Context, store blobstore.BlobStore, d registry.Dataset) ([]blobstore.ObjectInfo, error) {
	info, err := store.Stat(ctx, d.Prefix)
	switch {
	case err == nil:
		return []blobstore.ObjectInfo{info}, nil
	case !errors.Is(err, blobstore.ErrNotFound):
		return nil, fmt.Errorf("stat %s/%s: %w", d.Bucket, d.Prefix, err)
	}

	prefix := d.Prefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	objects, err := store.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("list %s/%s: %w", d.Bucket, prefix, err)
	}
	return objects, nil
}
