package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for controller state.
var (
	concurrencyLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nameprobe_concurrency_limit",
		Help: "Current adaptive concurrency permit limit",
	})

	requestDelaySeconds = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "nameprobe_request_delay_seconds",
		Help: "Current adaptive inter-request delay in seconds",
	})

	rateAdjustmentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameprobe_rate_adjustments_total",
		Help: "Controller adjustments by direction and cause",
	}, []string{"direction", "cause"})

	permitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nameprobe_permit_wait_seconds",
		Help:    "Time spent waiting for a concurrency permit",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
	})
)

// Controller gates requests through a resizable permit pool and an
// adaptive inter-request delay. All state is per-run; construct one
// Controller per checking run.
type Controller struct {
	cfg    Config
	logger zerolog.Logger

	mu   sync.Mutex
	cond *sync.Cond

	limit    int
	inFlight int
	delay    time.Duration

	consecutiveSuccesses int
	consecutiveErrors    int
	latencies            []time.Duration

	successCount int
	errorCount   int
	statsSince   time.Time
}

// New creates a controller with the initial limit and base delay from cfg.
func New(cfg Config) *Controller {
	if cfg.MinConcurrency < 1 {
		cfg.MinConcurrency = 1
	}
	if cfg.MaxConcurrency < cfg.MinConcurrency {
		cfg.MaxConcurrency = cfg.MinConcurrency
	}
	if cfg.InitialConcurrency < cfg.MinConcurrency {
		cfg.InitialConcurrency = cfg.MinConcurrency
	}
	if cfg.InitialConcurrency > cfg.MaxConcurrency {
		cfg.InitialConcurrency = cfg.MaxConcurrency
	}
	if cfg.MaxDelay < cfg.BaseDelay {
		cfg.MaxDelay = cfg.BaseDelay
	}
	if cfg.BackoffFactor <= 1.0 {
		cfg.BackoffFactor = 1.2
	}

	c := &Controller{
		cfg:        cfg,
		logger:     log.With().Str("component", "ratelimit").Logger(),
		limit:      cfg.InitialConcurrency,
		delay:      cfg.BaseDelay,
		statsSince: time.Now(),
	}
	c.cond = sync.NewCond(&c.mu)

	concurrencyLimit.Set(float64(c.limit))
	requestDelaySeconds.Set(c.delay.Seconds())

	return c
}

// Acquire blocks until a concurrency permit is available, then applies
// the current inter-request delay before returning. On context
// cancellation it returns the context error without holding a permit.
func (c *Controller) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Wake blocked waiters when the context is cancelled so the wait
	// loop can observe ctx.Err.
	stop := context.AfterFunc(ctx, func() {
		c.mu.Lock()
		c.cond.Broadcast()
		c.mu.Unlock()
	})
	defer stop()

	waitStart := time.Now()

	c.mu.Lock()
	for c.inFlight >= c.limit {
		if err := ctx.Err(); err != nil {
			c.mu.Unlock()
			return err
		}
		c.cond.Wait()
	}
	c.inFlight++
	delay := c.adaptiveDelayLocked()
	c.mu.Unlock()

	permitWaitSeconds.Observe(time.Since(waitStart).Seconds())

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			c.Release()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return nil
}

// Release returns a permit to the pool.
func (c *Controller) Release() {
	c.mu.Lock()
	if c.inFlight > 0 {
		c.inFlight--
	}
	c.mu.Unlock()
	c.cond.Signal()
}

// adaptiveDelayLocked computes the per-request delay. On a long success
// streak with fast responses the stored delay is halved for this request
// only; the stored value is not changed. Caller must hold mu.
func (c *Controller) adaptiveDelayLocked() time.Duration {
	if c.consecutiveSuccesses > fastPathStreakThreshold &&
		c.meanLatencyLocked(fastPathStreakThreshold) < fastPathLatencyThreshold {
		return c.delay / 2
	}
	return c.delay
}

// RecordSuccess feeds a successful request back into the controller.
// Sustained fast successes widen the permit pool by 10% and shrink the
// delay by 10%, within the configured bounds.
func (c *Controller) RecordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.successCount++
	c.consecutiveSuccesses++
	c.consecutiveErrors = 0

	c.latencies = append(c.latencies, latency)
	if len(c.latencies) > latencyWindowMax {
		c.latencies = c.latencies[len(c.latencies)-latencyWindowTrim:]
	}

	if c.consecutiveSuccesses < successStreakThreshold {
		return
	}
	if c.meanLatencyLocked(successStreakThreshold) >= successLatencyThreshold {
		return
	}

	if c.limit < c.cfg.MaxConcurrency {
		newLimit := c.limit + c.limit/10
		if newLimit == c.limit {
			newLimit++
		}
		if newLimit > c.cfg.MaxConcurrency {
			newLimit = c.cfg.MaxConcurrency
		}
		c.limit = newLimit
		concurrencyLimit.Set(float64(c.limit))
		rateAdjustmentsTotal.WithLabelValues("up", "success_streak").Inc()
		c.cond.Broadcast()

		c.logger.Debug().
			Int("concurrency", c.limit).
			Msg("Concurrency raised after success streak")
	}

	if c.delay > c.cfg.BaseDelay {
		c.delay = time.Duration(float64(c.delay) * 0.9)
		if c.delay < c.cfg.BaseDelay {
			c.delay = c.cfg.BaseDelay
		}
		requestDelaySeconds.Set(c.delay.Seconds())
	}
}

// RecordError feeds a failed request back into the controller. A
// rate-limit signal doubles down: delay grows by twice the backoff
// factor and the permit pool is halved. Other errors back off by a
// single factor and shed 20% of the permits.
func (c *Controller) RecordError(category ErrorCategory) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.errorCount++
	c.consecutiveErrors++
	c.consecutiveSuccesses = 0

	factor := c.cfg.BackoffFactor
	newLimit := c.limit * 4 / 5
	cause := "error"
	if category == CategoryRateLimit {
		factor = c.cfg.BackoffFactor * 2
		newLimit = c.limit / 2
		cause = "rate_limit"
	}

	c.delay = time.Duration(float64(c.delay) * factor)
	if c.delay > c.cfg.MaxDelay {
		c.delay = c.cfg.MaxDelay
	}
	if c.delay < c.cfg.BaseDelay {
		c.delay = c.cfg.BaseDelay
	}
	requestDelaySeconds.Set(c.delay.Seconds())

	if newLimit < c.cfg.MinConcurrency {
		newLimit = c.cfg.MinConcurrency
	}
	if newLimit != c.limit {
		// Shrinking never cancels in-flight work: Acquire waits while
		// inFlight >= limit, so outstanding permits drain naturally.
		c.limit = newLimit
		concurrencyLimit.Set(float64(c.limit))
		rateAdjustmentsTotal.WithLabelValues("down", cause).Inc()

		c.logger.Warn().
			Str("category", string(category)).
			Int("concurrency", c.limit).
			Dur("delay", c.delay).
			Msg("Concurrency reduced after error")
	}
}

// Limit returns the current concurrency ceiling.
func (c *Controller) Limit() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limit
}

// InFlight returns the number of permits currently held.
func (c *Controller) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}

// Delay returns the stored inter-request delay (without the fast-path
// halving applied by Acquire).
func (c *Controller) Delay() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.delay
}

// Stats returns throughput counters for the current measurement period.
func (c *Controller) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		SuccessRate:          1.0,
		ConsecutiveSuccesses: c.consecutiveSuccesses,
		ConsecutiveErrors:    c.consecutiveErrors,
	}

	total := c.successCount + c.errorCount
	if total > 0 {
		s.SuccessRate = float64(c.successCount) / float64(total)
		s.ErrorRate = float64(c.errorCount) / float64(total)
	}

	if len(c.latencies) > 0 {
		s.AvgLatency = c.meanLatencyLocked(len(c.latencies))
	}

	if elapsed := time.Since(c.statsSince).Seconds(); elapsed > 0 {
		s.RequestsPerSecond = float64(total) / elapsed
	}

	return s
}

// ResetStats starts a new measurement period. Streaks, the latency
// window, and the adapted limit/delay are preserved.
func (c *Controller) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successCount = 0
	c.errorCount = 0
	c.statsSince = time.Now()
}

// meanLatencyLocked averages the last n window samples (or fewer when
// the window is shorter). Returns 0 for an empty window. Caller must
// hold mu.
func (c *Controller) meanLatencyLocked(n int) time.Duration {
	if len(c.latencies) == 0 {
		return 0
	}
	if n > len(c.latencies) {
		n = len(c.latencies)
	}
	var sum time.Duration
	for _, l := range c.latencies[len(c.latencies)-n:] {
		sum += l
	}
	return sum / time.Duration(n)
}
