// Package ratelimit implements the adaptive concurrency and delay
// controller that governs the checking pipeline. It owns a resizable
// permit pool and a scalar inter-request delay, both adjusted from live
// success/error/latency feedback.
package ratelimit

import (
	"time"
)

// ErrorCategory classifies a failed request for adaptation purposes.
type ErrorCategory string

const (
	// CategoryRateLimit is an explicit throttle signal from the remote
	// service (HTTP 429 equivalent). Triggers aggressive contraction.
	CategoryRateLimit ErrorCategory = "rate_limit"

	// CategoryTimeout is a transport-level timeout.
	CategoryTimeout ErrorCategory = "timeout"

	// CategoryNetwork is a connection-level failure (reset, refused, DNS).
	CategoryNetwork ErrorCategory = "network"

	// CategoryProtocol is an unexpected HTTP status or malformed payload.
	CategoryProtocol ErrorCategory = "protocol"
)

// Adaptation thresholds.
const (
	// successStreakThreshold is the streak length after which sustained
	// fast responses widen the permit pool and shrink the delay.
	successStreakThreshold = 10

	// successLatencyThreshold is the mean latency (over the last
	// successStreakThreshold samples) below which throughput is raised.
	successLatencyThreshold = 500 * time.Millisecond

	// fastPathStreakThreshold enables the per-request delay halving.
	fastPathStreakThreshold = 20

	// fastPathLatencyThreshold is the mean latency (over the last
	// fastPathStreakThreshold samples) below which the halving applies.
	fastPathLatencyThreshold = 200 * time.Millisecond

	// latencyWindowMax and latencyWindowTrim bound the recent-latency
	// window: once it grows past Max it is trimmed to the last Trim.
	latencyWindowMax  = 100
	latencyWindowTrim = 50
)

// Config holds the controller bounds and growth factors.
type Config struct {
	// Concurrency permit bounds. The live limit always stays within
	// [MinConcurrency, MaxConcurrency].
	MinConcurrency     int
	MaxConcurrency     int
	InitialConcurrency int

	// Delay bounds. The live inter-request delay always stays within
	// [BaseDelay, MaxDelay].
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// BackoffFactor is the multiplicative delay growth applied on errors.
	// Rate-limit errors apply twice this factor.
	BackoffFactor float64
}

// DefaultConfig returns controller defaults matching the pipeline defaults.
func DefaultConfig() Config {
	return Config{
		MinConcurrency:     100,
		MaxConcurrency:     300,
		InitialConcurrency: 200,
		BaseDelay:          100 * time.Microsecond,
		MaxDelay:           500 * time.Millisecond,
		BackoffFactor:      1.2,
	}
}

// Stats is a point-in-time view of controller throughput counters.
type Stats struct {
	// SuccessRate is successes / (successes + errors) for the current
	// measurement period. 1.0 when nothing has been recorded.
	SuccessRate float64

	// ErrorRate is the complement of SuccessRate over recorded requests.
	ErrorRate float64

	// AvgLatency is the mean over the recent-latency window.
	AvgLatency time.Duration

	// RequestsPerSecond is the observed completion rate for the current
	// measurement period.
	RequestsPerSecond float64

	// ConsecutiveSuccesses and ConsecutiveErrors are the live streaks.
	ConsecutiveSuccesses int
	ConsecutiveErrors    int
}
