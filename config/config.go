// Package config loads the YAML configuration of a lakescan deployment and
// turns it into stores, a dataset registry and engine options.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/lakescan/registry"
	"github.com/hupe1980/lakescan/sampling"
	"github.com/hupe1980/lakescan/scan"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendLocal    = "local"
	BackendS3       = "s3"
	BackendMinIO    = "minio"
	BackendDynamoDB = "dynamodb"
)

// Config represents the complete configuration of a lakescan process
type Config struct {
	Storage  StorageConfig  `yaml:"storage"`
	Scan     ScanConfig     `yaml:"scan"`
	Sampling SamplingConfig `yaml:"sampling"`
	Cache    CacheConfig    `yaml:"cache"`
	Registry RegistryConfig `yaml:"registry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// StorageConfig holds object storage configuration
type StorageConfig struct {
	Backend      string `yaml:"backend"`
	Root         string `yaml:"root"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	Endpoint     string `yaml:"endpoint"`
	UsePathStyle bool   `yaml:"use_path_style"`
	AccessKey    string `yaml:"access_key"`
	SecretKey    string `yaml:"secret_key"`
	Secure       bool   `yaml:"secure"`
	// BlockCacheSize is the byte capacity of the range-read block cache.
	// Zero disables it.
	BlockCacheSize int64 `yaml:"block_cache_size"`
	BlockSize      int64 `yaml:"block_size"`
}

// ScanConfig holds range reader and scanner configuration
type ScanConfig struct {
	WindowSize    int64         `yaml:"window_size"`
	SafetyCeiling int           `yaml:"safety_ceiling"`
	WindowTimeout time.Duration `yaml:"window_timeout"`
	// IOLimit caps read throughput in bytes per second. Zero is unlimited.
	IOLimit int64 `yaml:"io_limit"`
	// MemoryLimit bounds the bytes held by window buffers and the block
	// cache together. Zero is unlimited.
	MemoryLimit int64 `yaml:"memory_limit"`
}

// SamplingConfig holds sampling strategy configuration
type SamplingConfig struct {
	Strategies   sampling.Set `yaml:"strategies"`
	RelevantRows int          `yaml:"relevant_rows"`
}

// CacheConfig holds result cache configuration
type CacheConfig struct {
	SampleTTL    time.Duration `yaml:"sample_ttl"`
	WarmInterval time.Duration `yaml:"warm_interval"`
	WarmOnStart  bool          `yaml:"warm_on_start"`
}

// RegistryConfig holds dataset registry configuration
type RegistryConfig struct {
	Backend  string             `yaml:"backend"`
	Table    string             `yaml:"table"`
	Region   string             `yaml:"region"`
	Endpoint string             `yaml:"endpoint"`
	Datasets []registry.Dataset `yaml:"datasets"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig loads configuration from a file
func LoadConfig(filePath string) (*Config, error) {
	return LoadConfigFs(afero.NewOsFs(), filePath)
}

// LoadConfigFs loads configuration from a file of fs
func LoadConfigFs(fs afero.Fs, filePath string) (*Config, error) {
	data, err := afero.ReadFile(fs, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML document
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Default returns the configuration with every default applied
func Default() *Config {
	var cfg Config
	setDefaults(&cfg)
	return &cfg
}

// setDefaults sets default values for unspecified configuration
func setDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = BackendLocal
	}
	if cfg.Storage.Backend == BackendLocal && cfg.Storage.Root == "" {
		cfg.Storage.Root = "."
	}
	if cfg.Storage.BlockCacheSize > 0 && cfg.Storage.BlockSize == 0 {
		cfg.Storage.BlockSize = 1 << 20
	}

	if cfg.Scan.WindowSize == 0 {
		cfg.Scan.WindowSize = scan.DefaultWindowSize
	}
	if cfg.Scan.SafetyCeiling == 0 {
		cfg.Scan.SafetyCeiling = scan.DefaultSafetyCeiling
	}
	if cfg.Scan.WindowTimeout == 0 {
		cfg.Scan.WindowTimeout = scan.DefaultWindowTimeout
	}

	if len(cfg.Sampling.Strategies) == 0 {
		cfg.Sampling.Strategies = sampling.DefaultSet()
	}
	if cfg.Sampling.RelevantRows == 0 {
		cfg.Sampling.RelevantRows = 5
	}

	if cfg.Cache.SampleTTL == 0 {
		cfg.Cache.SampleTTL = 10 * time.Minute
	}
	if cfg.Cache.WarmInterval == 0 {
		cfg.Cache.WarmInterval = 10 * time.Minute
	}

	if cfg.Registry.Backend == "" {
		cfg.Registry.Backend = BackendMemory
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendLocal:
	case BackendS3:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 backend")
		}
	case BackendMinIO:
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the minio backend")
		}
		if c.Storage.Endpoint == "" {
			return errors.New("storage.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of: memory, local, s3, minio (got %q)", c.Storage.Backend)
	}
	if c.Storage.BlockCacheSize < 0 {
		return errors.New("storage.block_cache_size must not be negative")
	}

	if c.Scan.WindowSize <= 0 {
		return errors.New("scan.window_size must be positive")
	}
	if c.Scan.SafetyCeiling <= 0 {
		return errors.New("scan.safety_ceiling must be positive")
	}
	if c.Scan.WindowTimeout < 0 {
		return errors.New("scan.window_timeout must not be negative")
	}
	if c.Scan.IOLimit < 0 {
		return errors.New("scan.io_limit must not be negative")
	}
	if c.Scan.MemoryLimit < 0 {
		return errors.New("scan.memory_limit must not be negative")
	}
	if need := c.Scan.WindowSize + c.Storage.BlockCacheSize; c.Scan.MemoryLimit > 0 && c.Scan.MemoryLimit < need {
		return fmt.Errorf("scan.memory_limit must be at least window_size + block_cache_size (%d)", need)
	}

	if err := c.Sampling.Strategies.Validate(); err != nil {
		return fmt.Errorf("sampling.strategies: %w", err)
	}
	if c.Sampling.RelevantRows < 0 {
		return errors.New("sampling.relevant_rows must not be negative")
	}

	if c.Cache.SampleTTL < 0 {
		return errors.New("cache.sample_ttl must not be negative")
	}
	if c.Cache.WarmInterval <= 0 {
		return errors.New("cache.warm_interval must be positive")
	}

	switch c.Registry.Backend {
	case BackendMemory:
		for _, d := range c.Registry.Datasets {
			if err := d.Validate(); err != nil {
				return fmt.Errorf("registry.datasets: %w", err)
			}
		}
	case BackendDynamoDB:
		if c.Registry.Table == "" {
			return errors.New("registry.table is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("registry.backend must be one of: memory, dynamodb (got %q)", c.Registry.Backend)
	}

	if c.Metrics.Port <= 0 || c.Metrics.Port > 65535 {
		return errors.New("metrics.port must be between 1 and 65535")
	}

	if _, err := c.Logging.level(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return errors.New("logging.format must be one of: json, text")
	}
	return nil
}

func (l LoggingConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return lvl, nil
}
