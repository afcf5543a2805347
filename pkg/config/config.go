// Package config defines the configuration surface consumed by the
// checking pipeline and its loading from environment and config files.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all tunables for a checking run.
type Config struct {
	// Concurrency bounds for the adaptive rate controller.
	MinConcurrency     int `mapstructure:"min_concurrency"`
	MaxConcurrency     int `mapstructure:"max_concurrency"`
	InitialConcurrency int `mapstructure:"initial_concurrency"`

	// Inter-request delay bounds and backoff growth factor.
	BaseDelay     time.Duration `mapstructure:"base_delay"`
	MaxDelay      time.Duration `mapstructure:"max_delay"`
	BackoffFactor float64       `mapstructure:"backoff_factor"`

	// HTTP timeouts. TotalTimeout covers the whole exchange,
	// ConnectTimeout the dial, ReadTimeout the wait for response headers.
	TotalTimeout   time.Duration `mapstructure:"total_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`

	// Retry behavior for transient failures.
	MaxRetries int           `mapstructure:"max_retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`

	// Batching. ChunkSize bounds memory, BatchSize bounds one dispatch wave.
	BatchSize int `mapstructure:"batch_size"`
	ChunkSize int `mapstructure:"chunk_size"`

	// Response cache.
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	CacheCapacity int           `mapstructure:"cache_capacity"`

	// Connection pool size (number of reusable HTTP clients).
	PoolSize int `mapstructure:"pool_size"`

	// Remote endpoint.
	APIURL        string `mapstructure:"api_url"`
	ReferenceDate string `mapstructure:"reference_date"`

	// Telemetry snapshot interval.
	ProgressInterval time.Duration `mapstructure:"progress_interval"`

	// RedisAddr enables the optional shared cache tier when non-empty.
	RedisAddr string `mapstructure:"redis_addr"`
}

// Default returns a configuration tuned for high-throughput checking.
func Default() Config {
	return Config{
		MinConcurrency:     100,
		MaxConcurrency:     300,
		InitialConcurrency: 200,

		BaseDelay:     100 * time.Microsecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 1.2,

		TotalTimeout:   15 * time.Second,
		ConnectTimeout: 5 * time.Second,
		ReadTimeout:    5 * time.Second,

		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,

		BatchSize: 250,
		ChunkSize: 1000,

		CacheTTL:      5 * time.Minute,
		CacheCapacity: 10000,

		PoolSize: 5,

		APIURL:        "https://auth.roblox.com/v1/usernames/validate",
		ReferenceDate: "2000-01-01",

		ProgressInterval: time.Second,
	}
}

// Load builds a Config from defaults, an optional config file, and
// NAMEPROBE_* environment variables (highest precedence).
func Load(configFile string) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("min_concurrency", defaults.MinConcurrency)
	v.SetDefault("max_concurrency", defaults.MaxConcurrency)
	v.SetDefault("initial_concurrency", defaults.InitialConcurrency)
	v.SetDefault("base_delay", defaults.BaseDelay)
	v.SetDefault("max_delay", defaults.MaxDelay)
	v.SetDefault("backoff_factor", defaults.BackoffFactor)
	v.SetDefault("total_timeout", defaults.TotalTimeout)
	v.SetDefault("connect_timeout", defaults.ConnectTimeout)
	v.SetDefault("read_timeout", defaults.ReadTimeout)
	v.SetDefault("max_retries", defaults.MaxRetries)
	v.SetDefault("retry_delay", defaults.RetryDelay)
	v.SetDefault("batch_size", defaults.BatchSize)
	v.SetDefault("chunk_size", defaults.ChunkSize)
	v.SetDefault("cache_ttl", defaults.CacheTTL)
	v.SetDefault("cache_capacity", defaults.CacheCapacity)
	v.SetDefault("pool_size", defaults.PoolSize)
	v.SetDefault("api_url", defaults.APIURL)
	v.SetDefault("reference_date", defaults.ReferenceDate)
	v.SetDefault("progress_interval", defaults.ProgressInterval)
	v.SetDefault("redis_addr", defaults.RedisAddr)

	v.SetEnvPrefix("NAMEPROBE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the bound invariants the pipeline relies on.
func (c Config) Validate() error {
	if c.MinConcurrency < 1 {
		return fmt.Errorf("min_concurrency must be >= 1 (got %d)", c.MinConcurrency)
	}
	if c.MaxConcurrency < c.MinConcurrency {
		return fmt.Errorf("max_concurrency (%d) must be >= min_concurrency (%d)",
			c.MaxConcurrency, c.MinConcurrency)
	}
	if c.InitialConcurrency < c.MinConcurrency || c.InitialConcurrency > c.MaxConcurrency {
		return fmt.Errorf("initial_concurrency (%d) must be within [%d, %d]",
			c.InitialConcurrency, c.MinConcurrency, c.MaxConcurrency)
	}
	if c.BaseDelay < 0 {
		return fmt.Errorf("base_delay must be >= 0 (got %v)", c.BaseDelay)
	}
	if c.MaxDelay < c.BaseDelay {
		return fmt.Errorf("max_delay (%v) must be >= base_delay (%v)", c.MaxDelay, c.BaseDelay)
	}
	if c.BackoffFactor <= 1.0 {
		return fmt.Errorf("backoff_factor must be > 1.0 (got %v)", c.BackoffFactor)
	}
	if c.TotalTimeout <= 0 || c.ConnectTimeout <= 0 || c.ReadTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive (total %v, connect %v, read %v)",
			c.TotalTimeout, c.ConnectTimeout, c.ReadTimeout)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0 (got %d)", c.MaxRetries)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1 (got %d)", c.BatchSize)
	}
	if c.ChunkSize < c.BatchSize {
		return fmt.Errorf("chunk_size (%d) must be >= batch_size (%d)", c.ChunkSize, c.BatchSize)
	}
	if c.CacheCapacity < 1 {
		return fmt.Errorf("cache_capacity must be >= 1 (got %d)", c.CacheCapacity)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("pool_size must be >= 1 (got %d)", c.PoolSize)
	}
	if c.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	return nil
}
