package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/hupe1980/lakescan"
	"github.com/hupe1980/lakescan/blobstore"
	"github.com/hupe1980/lakescan/blobstore/minio"
	"github.com/hupe1980/lakescan/blobstore/s3"
	"github.com/hupe1980/lakescan/internal/cache"
	"github.com/hupe1980/lakescan/internal/resource"
	"github.com/hupe1980/lakescan/registry"
)

// Logger builds the logger described by the logging section.
func (c *Config) Logger() *lakescan.Logger {
	lvl, err := c.Logging.level()
	if err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if c.Logging.Format == "json" {
		return lakescan.NewLogger(slog.NewJSONHandler(os.Stderr, opts))
	}
	return lakescan.NewLogger(slog.NewTextHandler(os.Stderr, opts))
}

// EngineOptions converts the configuration into engine options. The
// logger is built from the logging section.
func (c *Config) EngineOptions() []lakescan.Option {
	return []lakescan.Option{
		lakescan.WithLogger(c.Logger()),
		lakescan.WithWindowSize(c.Scan.WindowSize),
		lakescan.WithSafetyCeiling(c.Scan.SafetyCeiling),
		lakescan.WithWindowTimeout(c.Scan.WindowTimeout),
		lakescan.WithIOLimit(c.Scan.IOLimit),
		lakescan.WithMemoryLimit(c.Scan.MemoryLimit),
		lakescan.WithStrategies(c.Sampling.Strategies),
		lakescan.WithRelevantRows(c.Sampling.RelevantRows),
		lakescan.WithSampleTTL(c.Cache.SampleTTL),
		lakescan.WithWarmInterval(c.Cache.WarmInterval),
	}
}

// Resources builds the resource controller of the scan section: the read
// rate limit and the memory budget.
func (c *Config) Resources() *resource.Controller {
	return resource.NewController(resource.Config{
		IOLimitBytesPerSec: c.Scan.IOLimit,
		MemoryLimitBytes:   c.Scan.MemoryLimit,
	})
}

// OpenStore creates the store of the storage section, wrapped in a block
// cache when one is configured. The block cache draws on a memory budget of
// its own; NewEngine shares one budget between the cache and the engine.
func (c *Config) OpenStore(ctx context.Context) (blobstore.BlobStore, error) {
	return c.openStore(ctx, c.Resources())
}

func (c *Config) openStore(ctx context.Context, rc *resource.Controller) (blobstore.BlobStore, error) {
	st := c.Storage

	var store blobstore.BlobStore
	switch st.Backend {
	case BackendMemory:
		store = blobstore.NewMemoryStore()
	case BackendLocal:
		store = blobstore.NewLocalStore(st.Root)
	case BackendS3:
		opts := []s3.Option{s3.WithPrefix(st.Prefix)}
		if st.Region != "" {
			opts = append(opts, s3.WithRegion(st.Region))
		}
		if st.Endpoint != "" {
			opts = append(opts, s3.WithEndpoint(st.Endpoint, st.UsePathStyle))
		}
		s, err := s3.New(ctx, st.Bucket, opts...)
		if err != nil {
			return nil, err
		}
		store = s
	case BackendMinIO:
		s, err := minio.Dial(st.Endpoint, st.AccessKey, st.SecretKey, st.Secure, st.Bucket, st.Prefix)
		if err != nil {
			return nil, fmt.Errorf("dial minio: %w", err)
		}
		store = s
	default:
		return nil, fmt.Errorf("unknown storage backend %q", st.Backend)
	}

	if st.BlockCacheSize > 0 {
		store = blobstore.NewCachingStore(store, cache.NewLRUBlockCache(st.BlockCacheSize, rc), st.Bucket, st.BlockSize)
	}
	return store, nil
}

// OpenStores creates a Mux serving the configured bucket and, as fallback,
// every other bucket name from the same store.
func (c *Config) OpenStores(ctx context.Context) (*blobstore.Mux, error) {
	return c.openStores(ctx, c.Resources())
}

func (c *Config) openStores(ctx context.Context, rc *resource.Controller) (*blobstore.Mux, error) {
	store, err := c.openStore(ctx, rc)
	if err != nil {
		return nil, err
	}
	mux := blobstore.NewMux(store)
	if c.Storage.Bucket != "" {
		mux.Handle(c.Storage.Bucket, store)
	}
	return mux, nil
}

// OpenRegistry creates the dataset registry of the registry section.
func (c *Config) OpenRegistry(ctx context.Context) (registry.Registry, error) {
	rc := c.Registry
	switch rc.Backend {
	case BackendMemory:
		return registry.NewMemoryRegistry(rc.Datasets...), nil
	case BackendDynamoDB:
		var loadOpts []func(*awsconfig.LoadOptions) error
		if rc.Region != "" {
			loadOpts = append(loadOpts, awsconfig.WithRegion(rc.Region))
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			if rc.Endpoint != "" {
				o.BaseEndpoint = aws.String(rc.Endpoint)
			}
		})
		return registry.NewDynamoRegistry(client, rc.Table), nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", rc.Backend)
	}
}

// NewEngine opens the configured stores and registry and creates an
// engine. The block cache and the engine's window buffers share one
// resource controller. extra options are applied after the configured ones.
func (c *Config) NewEngine(ctx context.Context, extra ...lakescan.Option) (*lakescan.Engine, error) {
	rc := c.Resources()
	stores, err := c.openStores(ctx, rc)
	if err != nil {
		return nil, err
	}
	reg, err := c.OpenRegistry(ctx)
	if err != nil {
		return nil, err
	}
	opts := append(c.EngineOptions(), lakescan.WithResourceController(rc))
	return lakescan.New(stores, reg, append(opts, extra...)...)
}
