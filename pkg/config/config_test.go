package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default() should validate, got: %v", err)
	}
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.MaxConcurrency != 300 {
		t.Errorf("MaxConcurrency = %d, want 300", cfg.MaxConcurrency)
	}
	if cfg.MinConcurrency != 100 {
		t.Errorf("MinConcurrency = %d, want 100", cfg.MinConcurrency)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.CacheCapacity != 10000 {
		t.Errorf("CacheCapacity = %d, want 10000", cfg.CacheCapacity)
	}
	if cfg.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", cfg.MaxRetries)
	}
	if cfg.BackoffFactor != 1.2 {
		t.Errorf("BackoffFactor = %v, want 1.2", cfg.BackoffFactor)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"zero min concurrency", func(c *Config) { c.MinConcurrency = 0 }, true},
		{"max below min", func(c *Config) { c.MaxConcurrency = c.MinConcurrency - 1 }, true},
		{"initial below min", func(c *Config) { c.InitialConcurrency = c.MinConcurrency - 1 }, true},
		{"initial above max", func(c *Config) { c.InitialConcurrency = c.MaxConcurrency + 1 }, true},
		{"negative base delay", func(c *Config) { c.BaseDelay = -time.Millisecond }, true},
		{"max delay below base", func(c *Config) { c.MaxDelay = c.BaseDelay - 1 }, true},
		{"backoff factor at 1.0", func(c *Config) { c.BackoffFactor = 1.0 }, true},
		{"zero total timeout", func(c *Config) { c.TotalTimeout = 0 }, true},
		{"negative retries", func(c *Config) { c.MaxRetries = -1 }, true},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, true},
		{"chunk below batch", func(c *Config) { c.ChunkSize = c.BatchSize - 1 }, true},
		{"zero cache capacity", func(c *Config) { c.CacheCapacity = 0 }, true},
		{"zero pool size", func(c *Config) { c.PoolSize = 0 }, true},
		{"empty api url", func(c *Config) { c.APIURL = "" }, true},
		{"zero retries allowed", func(c *Config) { c.MaxRetries = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load without overrides should equal Default()\n got: %+v\nwant: %+v", cfg, Default())
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("NAMEPROBE_MAX_CONCURRENCY", "50")
	t.Setenv("NAMEPROBE_MIN_CONCURRENCY", "10")
	t.Setenv("NAMEPROBE_INITIAL_CONCURRENCY", "20")
	t.Setenv("NAMEPROBE_MAX_DELAY", "2s")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MaxConcurrency != 50 {
		t.Errorf("MaxConcurrency = %d, want 50 (from env)", cfg.MaxConcurrency)
	}
	if cfg.MinConcurrency != 10 {
		t.Errorf("MinConcurrency = %d, want 10 (from env)", cfg.MinConcurrency)
	}
	if cfg.MaxDelay != 2*time.Second {
		t.Errorf("MaxDelay = %v, want 2s (from env)", cfg.MaxDelay)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nameprobe.yaml")
	content := []byte("max_concurrency: 40\nmin_concurrency: 5\ninitial_concurrency: 10\npool_size: 2\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load(%s) failed: %v", path, err)
	}

	if cfg.MaxConcurrency != 40 {
		t.Errorf("MaxConcurrency = %d, want 40 (from file)", cfg.MaxConcurrency)
	}
	if cfg.PoolSize != 2 {
		t.Errorf("PoolSize = %d, want 2 (from file)", cfg.PoolSize)
	}
	// Untouched keys keep defaults.
	if cfg.BatchSize != Default().BatchSize {
		t.Errorf("BatchSize = %d, want default %d", cfg.BatchSize, Default().BatchSize)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/nameprobe.yaml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadInvalidCombination(t *testing.T) {
	t.Setenv("NAMEPROBE_MIN_CONCURRENCY", "500")

	if _, err := Load(""); err == nil {
		t.Error("expected validation error when min exceeds max")
	}
}
