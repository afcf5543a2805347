// Package pool maintains a fixed set of reusable HTTP clients handed
// out round-robin, so concurrent checks spread across several transport
// stacks instead of queueing on one connection set.
package pool

import (
	"math/rand"
	"net"
	"net/http"
	"sync/atomic"
	"time"
)

// userAgents are the client identification strings distributed across
// pool members so the pool does not fingerprint as a single client.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:109.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:109.0) Gecko/20100101 Firefox/120.0",
}

// Config holds transport tuning for the pooled clients.
type Config struct {
	// Size is the number of clients in the pool.
	Size int

	// TotalTimeout covers a whole request/response exchange.
	// ConnectTimeout bounds the dial, ReadTimeout the wait for headers.
	TotalTimeout   time.Duration
	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// Connection reuse limits per client.
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	KeepAlive           time.Duration
}

// DefaultConfig returns transport settings tuned for a single busy
// destination host.
func DefaultConfig() Config {
	return Config{
		Size:                5,
		TotalTimeout:        15 * time.Second,
		ConnectTimeout:      5 * time.Second,
		ReadTimeout:         5 * time.Second,
		MaxIdleConns:        400,
		MaxIdleConnsPerHost: 150,
		KeepAlive:           120 * time.Second,
	}
}

// Pool is a fixed set of long-lived HTTP clients. Individual clients are
// safe for concurrent use; Borrow never hands out exclusive ownership.
type Pool struct {
	clients    []*http.Client
	transports []*http.Transport
	next       atomic.Uint64
}

// New creates the pool. Each member gets its own tuned transport and a
// distinct User-Agent drawn from a shuffled identity list.
func New(cfg Config) *Pool {
	if cfg.Size < 1 {
		cfg.Size = 1
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = DefaultConfig().TotalTimeout
	}

	identities := make([]string, len(userAgents))
	copy(identities, userAgents)
	rand.Shuffle(len(identities), func(i, j int) {
		identities[i], identities[j] = identities[j], identities[i]
	})

	p := &Pool{
		clients:    make([]*http.Client, cfg.Size),
		transports: make([]*http.Transport, cfg.Size),
	}

	for i := 0; i < cfg.Size; i++ {
		dialer := &net.Dialer{
			Timeout:   cfg.ConnectTimeout,
			KeepAlive: cfg.KeepAlive,
		}

		transport := &http.Transport{
			DialContext:           dialer.DialContext,
			MaxIdleConns:          cfg.MaxIdleConns,
			MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:       cfg.KeepAlive,
			ResponseHeaderTimeout: cfg.ReadTimeout,
			ForceAttemptHTTP2:     true,
		}

		p.transports[i] = transport
		p.clients[i] = &http.Client{
			Timeout: cfg.TotalTimeout,
			Transport: &identityTransport{
				base:      transport,
				userAgent: identities[i%len(identities)],
			},
		}
	}

	return p
}

// Borrow returns the next client round-robin. Clients are shared, not
// owned; there is no return operation.
func (p *Pool) Borrow() *http.Client {
	n := p.next.Add(1) - 1
	return p.clients[n%uint64(len(p.clients))]
}

// Size returns the number of clients in the pool.
func (p *Pool) Size() int {
	return len(p.clients)
}

// Close drops all idle connections. In-flight requests finish on their
// own; the pool must not be borrowed from afterwards.
func (p *Pool) Close() {
	for _, t := range p.transports {
		t.CloseIdleConnections()
	}
}

// identityTransport applies a pool member's fixed identification headers
// to every request it carries.
type identityTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *identityTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("User-Agent", t.userAgent)
	if clone.Header.Get("Accept") == "" {
		clone.Header.Set("Accept", "application/json")
	}
	clone.Header.Set("Accept-Language", "en-US,en;q=0.9")
	return t.base.RoundTrip(clone)
}
