// Package checker performs single identifier checks against the remote
// validation endpoint: cache consult, permit acquisition, the network
// call, response classification, and retry with exponential backoff.
package checker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nameprobe/nameprobe/pkg/cache"
	"github.com/nameprobe/nameprobe/pkg/pool"
	"github.com/nameprobe/nameprobe/pkg/ratelimit"
)

// Prometheus metrics for check operations.
var (
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameprobe_checks_total",
		Help: "Completed checks by outcome",
	}, []string{"outcome"})

	checkDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nameprobe_check_duration_seconds",
		Help:    "Duration of successful check attempts",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	checkErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameprobe_check_errors_total",
		Help: "Failed check attempts by error category",
	}, []string{"category"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nameprobe_retries_total",
		Help: "Retry attempts by error category",
	}, []string{"category"})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "nameprobe_retry_exhausted_total",
		Help: "Checks that failed every attempt",
	})
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 1 << 20

// validationResponse is the remote endpoint's JSON payload.
type validationResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message,omitempty"`
}

// Config holds dispatcher settings.
type Config struct {
	// APIURL is the validation endpoint.
	APIURL string

	// ReferenceDate is the fixed date sent with every request.
	ReferenceDate string

	// MaxRetries is the number of retries after the initial attempt.
	MaxRetries int

	// RetryDelay is the base backoff; attempt n sleeps RetryDelay * 2^n.
	RetryDelay time.Duration
}

// Dispatcher turns one identifier into one Result. Safe for concurrent
// use; a single Dispatcher serves a whole run.
type Dispatcher struct {
	cfg         Config
	pool        *pool.Pool
	controller  *ratelimit.Controller
	store       *cache.Store
	sharedStore *cache.RedisStore
	logger      zerolog.Logger
}

// NewDispatcher wires a dispatcher to its pool, controller, and cache.
func NewDispatcher(cfg Config, p *pool.Pool, c *ratelimit.Controller, store *cache.Store) *Dispatcher {
	return &Dispatcher{
		cfg:        cfg,
		pool:       p,
		controller: c,
		store:      store,
		logger:     log.With().Str("component", "checker").Logger(),
	}
}

// SetSharedStore enables the optional Redis cache tier.
func (d *Dispatcher) SetSharedStore(s *cache.RedisStore) {
	d.sharedStore = s
}

// Check resolves one identifier to a Result. Every remote failure is
// encoded in the Result; the returned error is non-nil only when the
// context is cancelled, in which case no Result is produced.
func (d *Dispatcher) Check(ctx context.Context, identifier string) (Result, error) {
	if res, ok := d.fromCache(ctx, identifier); ok {
		checksTotal.WithLabelValues(string(res.Outcome)).Inc()
		return res, nil
	}

	var lastDetail string

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		res, failure, err := d.attempt(ctx, identifier)
		if err != nil {
			return Result{}, err
		}
		if failure == nil {
			checksTotal.WithLabelValues(string(res.Outcome)).Inc()
			return res, nil
		}

		lastDetail = failure.detail
		if attempt < d.cfg.MaxRetries {
			retriesTotal.WithLabelValues(string(failure.category)).Inc()
			backoff := d.cfg.RetryDelay * (1 << uint(attempt))
			d.logger.Debug().
				Str("identifier", identifier).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Str("detail", failure.detail).
				Msg("Retrying after backoff")

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return Result{}, ctx.Err()
			case <-timer.C:
			}
		}
	}

	retryExhaustedTotal.Inc()
	checksTotal.WithLabelValues(string(OutcomeFatalError)).Inc()
	d.logger.Error().
		Str("identifier", identifier).
		Int("attempts", d.cfg.MaxRetries+1).
		Str("detail", lastDetail).
		Msg("Retry attempts exhausted")

	return Result{
		Identifier:  identifier,
		Outcome:     OutcomeFatalError,
		RemoteCode:  -1,
		ErrorDetail: fmt.Sprintf("%v: %s", ErrRetriesExhausted, lastDetail),
	}, nil
}

// fromCache serves a check from the memory tier, falling back to the
// shared tier when configured. Shared hits are promoted into memory.
func (d *Dispatcher) fromCache(ctx context.Context, identifier string) (Result, bool) {
	if data, ok := d.store.Get(identifier); ok {
		res, err := resultFromPayload(identifier, data)
		if err == nil {
			d.logger.Debug().Str("identifier", identifier).Str("tier", "memory").Msg("Cache hit")
			return res, true
		}
		// An undecodable entry would fail on every consult until TTL;
		// purge it so the next check refreshes it from the network.
		d.store.Delete(identifier)
		d.logger.Warn().Err(err).Str("identifier", identifier).Msg("Purged undecodable cache entry")
	}

	if d.sharedStore == nil {
		return Result{}, false
	}

	data, err := d.sharedStore.Get(ctx, identifier)
	if err != nil {
		if err != cache.ErrCacheMiss {
			d.logger.Warn().Err(err).Str("identifier", identifier).Msg("Shared cache get failed")
		}
		return Result{}, false
	}

	res, perr := resultFromPayload(identifier, data)
	if perr != nil {
		if derr := d.sharedStore.Delete(ctx, identifier); derr != nil {
			d.logger.Warn().Err(derr).Str("identifier", identifier).Msg("Shared cache delete failed")
		}
		return Result{}, false
	}

	d.store.Put(identifier, data)
	d.logger.Debug().Str("identifier", identifier).Str("tier", "redis").Msg("Cache hit")
	return res, true
}

// attemptFailure describes one failed, retriable attempt.
type attemptFailure struct {
	category ratelimit.ErrorCategory
	detail   string
}

// attempt runs one gated network attempt. The permit is always released
// before returning, so backoff sleeps never hold capacity. A nil
// failure means res is terminal; a non-nil failure means the attempt
// failed transiently and may be retried. err is non-nil only for
// context cancellation.
func (d *Dispatcher) attempt(ctx context.Context, identifier string) (res Result, failure *attemptFailure, err error) {
	if err := d.controller.Acquire(ctx); err != nil {
		return Result{}, nil, err
	}
	defer d.controller.Release()

	reqURL := fmt.Sprintf("%s?Username=%s&Birthday=%s",
		d.cfg.APIURL, url.QueryEscape(identifier), url.QueryEscape(d.cfg.ReferenceDate))

	req, rerr := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if rerr != nil {
		d.controller.RecordError(ratelimit.CategoryProtocol)
		return Result{}, &attemptFailure{
			category: ratelimit.CategoryProtocol,
			detail:   fmt.Sprintf("build request: %v", rerr),
		}, nil
	}

	start := time.Now()
	resp, derr := d.pool.Borrow().Do(req)
	latency := time.Since(start)

	if derr != nil {
		if ctx.Err() != nil {
			return Result{}, nil, ctx.Err()
		}
		category := classifyTransport(derr)
		d.controller.RecordError(category)
		checkErrorsTotal.WithLabelValues(string(category)).Inc()
		return Result{}, &attemptFailure{
			category: category,
			detail:   fmt.Sprintf("%s: %v", category, derr),
		}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, berr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if berr != nil {
			d.controller.RecordError(ratelimit.CategoryNetwork)
			checkErrorsTotal.WithLabelValues(string(ratelimit.CategoryNetwork)).Inc()
			return Result{}, &attemptFailure{
				category: ratelimit.CategoryNetwork,
				detail:   fmt.Sprintf("read body: %v", berr),
			}, nil
		}

		var payload validationResponse
		if jerr := json.Unmarshal(body, &payload); jerr != nil {
			d.controller.RecordError(ratelimit.CategoryProtocol)
			checkErrorsTotal.WithLabelValues(string(ratelimit.CategoryProtocol)).Inc()
			return Result{}, &attemptFailure{
				category: ratelimit.CategoryProtocol,
				detail:   fmt.Sprintf("malformed payload: %v", jerr),
			}, nil
		}

		d.controller.RecordSuccess(latency)
		checkDuration.Observe(latency.Seconds())
		d.cachePayload(ctx, identifier, body)

		return Result{
			Identifier: identifier,
			Outcome:    outcomeForCode(payload.Code),
			RemoteCode: payload.Code,
			Latency:    latency,
		}, nil, nil
	}

	category := categoryForStatus(resp.StatusCode)
	d.controller.RecordError(category)
	checkErrorsTotal.WithLabelValues(string(category)).Inc()

	reqErr := &RequestError{
		StatusCode: resp.StatusCode,
		Category:   category,
		Message:    resp.Status,
	}
	d.logger.Warn().
		Str("identifier", identifier).
		Int("status_code", resp.StatusCode).
		Str("category", string(category)).
		Msg("Check attempt failed")

	return Result{}, &attemptFailure{
		category: category,
		detail:   fmt.Sprintf("http_%d: %v", resp.StatusCode, reqErr),
	}, nil
}

// cachePayload writes a classified payload to both tiers. Shared tier
// failures are logged and swallowed.
func (d *Dispatcher) cachePayload(ctx context.Context, identifier string, body []byte) {
	d.store.Put(identifier, body)

	if d.sharedStore == nil {
		return
	}
	if err := d.sharedStore.Put(ctx, identifier, body); err != nil {
		d.logger.Warn().Err(err).Str("identifier", identifier).Msg("Shared cache put failed")
	}
}

// resultFromPayload rebuilds a Result from a cached payload.
func resultFromPayload(identifier string, data []byte) (Result, error) {
	var payload validationResponse
	if err := json.Unmarshal(data, &payload); err != nil {
		return Result{}, fmt.Errorf("decode cached payload: %w", err)
	}
	return Result{
		Identifier: identifier,
		Outcome:    outcomeForCode(payload.Code),
		RemoteCode: payload.Code,
		Cached:     true,
	}, nil
}
