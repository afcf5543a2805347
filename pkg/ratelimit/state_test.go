package ratelimit

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MinConcurrency != 100 {
		t.Errorf("MinConcurrency = %d, want 100", cfg.MinConcurrency)
	}
	if cfg.MaxConcurrency != 300 {
		t.Errorf("MaxConcurrency = %d, want 300", cfg.MaxConcurrency)
	}
	if cfg.InitialConcurrency != 200 {
		t.Errorf("InitialConcurrency = %d, want 200", cfg.InitialConcurrency)
	}
	if cfg.MaxDelay != 500*time.Millisecond {
		t.Errorf("MaxDelay = %v, want 500ms", cfg.MaxDelay)
	}
	if cfg.BackoffFactor != 1.2 {
		t.Errorf("BackoffFactor = %v, want 1.2", cfg.BackoffFactor)
	}
}

func TestNewClampsConfig(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantLimit int
	}{
		{
			name:      "initial below min is raised",
			cfg:       Config{MinConcurrency: 5, MaxConcurrency: 10, InitialConcurrency: 1},
			wantLimit: 5,
		},
		{
			name:      "initial above max is lowered",
			cfg:       Config{MinConcurrency: 2, MaxConcurrency: 4, InitialConcurrency: 50},
			wantLimit: 4,
		},
		{
			name:      "zero min becomes one",
			cfg:       Config{MinConcurrency: 0, MaxConcurrency: 0, InitialConcurrency: 0},
			wantLimit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.cfg)
			if got := c.Limit(); got != tt.wantLimit {
				t.Errorf("Limit() = %d, want %d", got, tt.wantLimit)
			}
		})
	}
}

func TestErrorCategories(t *testing.T) {
	categories := []ErrorCategory{CategoryRateLimit, CategoryTimeout, CategoryNetwork, CategoryProtocol}
	seen := make(map[ErrorCategory]bool)
	for _, c := range categories {
		if c == "" {
			t.Error("error category must not be empty")
		}
		if seen[c] {
			t.Errorf("duplicate error category %q", c)
		}
		seen[c] = true
	}
}
