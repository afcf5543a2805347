// Package telemetry defines the progress reporting boundary of a batch
// run. The orchestrator pushes snapshots; sinks render them. Sink
// failures never interrupt processing.
package telemetry

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/nameprobe/nameprobe/pkg/checker"
)

// Snapshot is a point-in-time view of a batch run.
type Snapshot struct {
	// Processed is the number of identifiers resolved so far.
	Processed int

	// Total is the number of identifiers submitted to the run.
	Total int

	// Counts holds per-outcome tallies.
	Counts map[checker.Outcome]int

	// Concurrency is the controller's current permit limit.
	Concurrency int

	// Delay is the controller's current pacing delay.
	Delay time.Duration

	// RPS is the observed request throughput since the last stats reset.
	RPS float64

	// Elapsed is the wall time since the run started.
	Elapsed time.Duration
}

// Sink receives progress snapshots during a run.
type Sink interface {
	Push(snap Snapshot) error
}

// LoggerSink renders snapshots as structured log events.
type LoggerSink struct {
	logger zerolog.Logger
}

// NewLoggerSink returns a sink logging at info level.
func NewLoggerSink() *LoggerSink {
	return &LoggerSink{
		logger: log.With().Str("component", "telemetry").Logger(),
	}
}

// Push implements Sink.
func (s *LoggerSink) Push(snap Snapshot) error {
	evt := s.logger.Info().
		Int("processed", snap.Processed).
		Int("total", snap.Total).
		Int("concurrency", snap.Concurrency).
		Dur("delay", snap.Delay).
		Float64("rps", snap.RPS).
		Dur("elapsed", snap.Elapsed)

	for outcome, count := range snap.Counts {
		evt = evt.Int(string(outcome), count)
	}

	evt.Msg("Batch progress")
	return nil
}

// Throttled wraps a sink and drops snapshots arriving faster than the
// given interval. The final snapshot of a run should be pushed to the
// inner sink directly if it must not be dropped.
type Throttled struct {
	inner   Sink
	limiter *rate.Limiter
}

// NewThrottled wraps inner so at most one snapshot per interval passes.
func NewThrottled(inner Sink, interval time.Duration) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Push forwards the snapshot when the interval allows, otherwise drops
// it silently.
func (t *Throttled) Push(snap Snapshot) error {
	if !t.limiter.Allow() {
		return nil
	}
	return t.inner.Push(snap)
}

// Inner returns the wrapped sink.
func (t *Throttled) Inner() Sink {
	return t.inner
}
