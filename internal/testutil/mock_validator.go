// Package testutil provides testing utilities for the checking pipeline.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockValidator is a configurable mock of the remote validation
// endpoint. It answers GET requests carrying a Username query parameter
// with a JSON body {"code": N}.
type MockValidator struct {
	server *httptest.Server

	mu             sync.Mutex
	codes          map[string]int
	malformed      map[string]bool
	statusOverride int
	dropRemaining  int
	delay          time.Duration
	requestCount   int
	perIdentifier  map[string]int
}

// NewMockValidator starts a mock endpoint. Unconfigured identifiers
// report code 0 (available).
func NewMockValidator() *MockValidator {
	m := &MockValidator{
		codes:         make(map[string]int),
		malformed:     make(map[string]bool),
		perIdentifier: make(map[string]int),
	}
	m.server = httptest.NewServer(http.HandlerFunc(m.handle))
	return m
}

// URL returns the mock endpoint URL.
func (m *MockValidator) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockValidator) Close() {
	m.server.Close()
}

// SetCode configures the remote code returned for an identifier.
func (m *MockValidator) SetCode(identifier string, code int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes[identifier] = code
}

// SetMalformed makes responses for an identifier undecodable JSON.
func (m *MockValidator) SetMalformed(identifier string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.malformed[identifier] = true
}

// SetStatus forces every response to the given HTTP status. Zero
// restores normal behavior.
func (m *MockValidator) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusOverride = status
}

// SetDelay adds a fixed latency to every response.
func (m *MockValidator) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// DropConnections makes the next n requests fail at the transport level
// by closing the connection without a response.
func (m *MockValidator) DropConnections(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRemaining = n
}

// RequestCount returns the total number of requests received.
func (m *MockValidator) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requestCount
}

// RequestsFor returns how many requests were received for an identifier.
func (m *MockValidator) RequestsFor(identifier string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.perIdentifier[identifier]
}

func (m *MockValidator) handle(w http.ResponseWriter, r *http.Request) {
	identifier := r.URL.Query().Get("Username")

	m.mu.Lock()
	m.requestCount++
	m.perIdentifier[identifier]++
	drop := m.dropRemaining > 0
	if drop {
		m.dropRemaining--
	}
	status := m.statusOverride
	code := m.codes[identifier]
	malformed := m.malformed[identifier]
	delay := m.delay
	m.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	if drop {
		hj, ok := w.(http.Hijacker)
		if !ok {
			// Fall back to an empty 500 when hijacking is unsupported.
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		conn, _, err := hj.Hijack()
		if err == nil {
			conn.Close()
		}
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		fmt.Fprintf(w, `{"error": "status %d"}`, status)
		return
	}

	if malformed {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"code": not-json`)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"code": %d, "message": ""}`, code)
}
