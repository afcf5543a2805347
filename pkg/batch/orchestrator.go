// Package batch orchestrates a full checking run: it slices the input
// into memory-bounded chunks, dispatches controller-sized waves of
// concurrent checks, and publishes progress snapshots.
package batch

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nameprobe/nameprobe/pkg/checker"
	"github.com/nameprobe/nameprobe/pkg/ratelimit"
	"github.com/nameprobe/nameprobe/pkg/telemetry"
)

// Prometheus metrics for batch orchestration.
var (
	batchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameprobe_batches_total",
		Help: "Dispatched batch waves",
	})

	batchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nameprobe_batch_size",
		Help:    "Identifiers per dispatched wave",
		Buckets: []float64{1, 10, 25, 50, 100, 250, 500},
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nameprobe_run_duration_seconds",
		Help:    "Wall time of completed runs",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})
)

// Config holds orchestration settings.
type Config struct {
	// BatchSize caps one dispatch wave. The live wave size is the
	// smaller of this and the controller's current limit.
	BatchSize int

	// ChunkSize bounds how many identifiers are staged at once.
	ChunkSize int
}

// Orchestrator runs a set of identifiers through the dispatcher and
// produces exactly one Result per input.
type Orchestrator struct {
	cfg        Config
	dispatcher *checker.Dispatcher
	controller *ratelimit.Controller
	sink       telemetry.Sink
	logger     zerolog.Logger
}

// New wires an orchestrator. sink may be nil to disable progress
// reporting.
func New(cfg Config, d *checker.Dispatcher, ctrl *ratelimit.Controller, sink telemetry.Sink) *Orchestrator {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.ChunkSize < cfg.BatchSize {
		cfg.ChunkSize = cfg.BatchSize
	}
	return &Orchestrator{
		cfg:        cfg,
		dispatcher: d,
		controller: ctrl,
		sink:       sink,
		logger:     log.With().Str("component", "batch").Logger(),
	}
}

// Process checks every identifier and returns their results. Order
// follows completion, not input. On cancellation the results completed
// so far are returned together with the context error; in-flight
// identifiers are dropped.
func (o *Orchestrator) Process(ctx context.Context, identifiers []string) ([]checker.Result, error) {
	start := time.Now()
	total := len(identifiers)
	results := make([]checker.Result, 0, total)
	counts := make(map[checker.Outcome]int)

	o.logger.Info().
		Int("total", total).
		Int("chunk_size", o.cfg.ChunkSize).
		Int("batch_size", o.cfg.BatchSize).
		Msg("Starting batch run")

	for offset := 0; offset < total; offset += o.cfg.ChunkSize {
		end := offset + o.cfg.ChunkSize
		if end > total {
			end = total
		}
		chunk := identifiers[offset:end]

		o.logger.Debug().
			Int("offset", offset).
			Int("size", len(chunk)).
			Msg("Processing chunk")

		for len(chunk) > 0 {
			if err := ctx.Err(); err != nil {
				return results, err
			}

			size := o.waveSize(len(chunk))
			wave := chunk[:size]
			chunk = chunk[size:]

			batchesTotal.Inc()
			batchSize.Observe(float64(size))

			done, err := o.runWave(ctx, wave)
			for _, res := range done {
				counts[res.Outcome]++
			}
			results = append(results, done...)

			if err != nil {
				o.logger.Warn().
					Err(err).
					Int("completed", len(results)).
					Int("total", total).
					Msg("Run cancelled")
				return results, err
			}

			// Counts keeps accumulating; each snapshot gets its own copy
			// so sinks that retain or consume asynchronously see the
			// tallies as they were at push time.
			o.pushProgress(telemetry.Snapshot{
				Processed:   len(results),
				Total:       total,
				Counts:      maps.Clone(counts),
				Concurrency: o.controller.Limit(),
				Delay:       o.controller.Delay(),
				RPS:         o.controller.Stats().RequestsPerSecond,
				Elapsed:     time.Since(start),
			})
		}
	}

	elapsed := time.Since(start)
	runDuration.Observe(elapsed.Seconds())

	o.pushFinal(telemetry.Snapshot{
		Processed:   len(results),
		Total:       total,
		Counts:      maps.Clone(counts),
		Concurrency: o.controller.Limit(),
		Delay:       o.controller.Delay(),
		RPS:         o.controller.Stats().RequestsPerSecond,
		Elapsed:     elapsed,
	})

	o.logger.Info().
		Int("processed", len(results)).
		Dur("elapsed", elapsed).
		Msg("Batch run complete")

	return results, nil
}

// waveSize picks the next dispatch wave size from the configured cap,
// the controller's live limit, and the identifiers remaining.
func (o *Orchestrator) waveSize(remaining int) int {
	size := o.cfg.BatchSize
	if limit := o.controller.Limit(); limit < size {
		size = limit
	}
	if remaining < size {
		size = remaining
	}
	if size < 1 {
		size = 1
	}
	return size
}

// runWave dispatches one wave concurrently and collects the completed
// results. A non-nil error means the context was cancelled; results
// that finished before cancellation are still returned.
func (o *Orchestrator) runWave(ctx context.Context, wave []string) ([]checker.Result, error) {
	type slot struct {
		res  checker.Result
		err  error
		done bool
	}

	slots := make([]slot, len(wave))
	var wg sync.WaitGroup

	for i, identifier := range wave {
		wg.Add(1)
		go func(i int, identifier string) {
			defer wg.Done()
			res, err := o.dispatcher.Check(ctx, identifier)
			if err != nil {
				slots[i].err = err
				return
			}
			slots[i].res = res
			slots[i].done = true
		}(i, identifier)
	}
	wg.Wait()

	completed := make([]checker.Result, 0, len(wave))
	var firstErr error
	for _, s := range slots {
		if s.done {
			completed = append(completed, s.res)
			continue
		}
		if firstErr == nil {
			firstErr = s.err
		}
	}
	return completed, firstErr
}

// pushProgress forwards a snapshot to the sink; sink failures never
// interrupt the run.
func (o *Orchestrator) pushProgress(snap telemetry.Snapshot) {
	if o.sink == nil {
		return
	}
	if err := o.sink.Push(snap); err != nil {
		o.logger.Warn().Err(err).Msg("Progress sink push failed")
	}
}

// pushFinal delivers the closing snapshot, bypassing throttling so the
// run summary is never dropped.
func (o *Orchestrator) pushFinal(snap telemetry.Snapshot) {
	if o.sink == nil {
		return
	}
	sink := o.sink
	if th, ok := sink.(*telemetry.Throttled); ok {
		sink = th.Inner()
	}
	if err := sink.Push(snap); err != nil {
		o.logger.Warn().Err(err).Msg("Final sink push failed")
	}
}
