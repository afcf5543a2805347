package cache

import (
	"sort"
	"sync"
	"time"
)

// Default tuning for the memory tier.
const (
	// DefaultTTL is how long a cached response stays live.
	DefaultTTL = 5 * time.Minute

	// DefaultCapacity is the entry count that triggers an eviction sweep.
	DefaultCapacity = 10000

	// evictFraction is the share of capacity removed per sweep.
	evictFraction = 5 // oldest 1/5 of capacity
)

// Entry is one cached response payload with its insertion timestamp.
type Entry struct {
	Data       []byte
	InsertedAt time.Time
}

// Store is the in-memory bounded TTL cache. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	entries  map[string]Entry
	ttl      time.Duration
	capacity int
}

// NewStore creates a memory cache with the given TTL and capacity.
// Non-positive values fall back to the defaults.
func NewStore(ttl time.Duration, capacity int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		entries:  make(map[string]Entry),
		ttl:      ttl,
		capacity: capacity,
	}
}

// Get returns the live cached payload for an identifier. An expired
// entry is purged on discovery and reported as a miss.
func (s *Store) Get(identifier string) ([]byte, bool) {
	key := Key(identifier)

	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		CacheMisses.Inc()
		return nil, false
	}

	if time.Since(entry.InsertedAt) >= s.ttl {
		s.mu.Lock()
		// Recheck under the write lock; the entry may have been
		// replaced by a fresh Put in the meantime.
		if cur, ok := s.entries[key]; ok && time.Since(cur.InsertedAt) >= s.ttl {
			delete(s.entries, key)
			CacheEntries.Set(float64(len(s.entries)))
		}
		s.mu.Unlock()
		CacheMisses.Inc()
		return nil, false
	}

	CacheHits.WithLabelValues("memory").Inc()

	// Hand out a copy; the stored payload must not be mutable through
	// the returned slice.
	data := make([]byte, len(entry.Data))
	copy(data, entry.Data)
	return data, true
}

// Delete removes an identifier's entry, if present.
func (s *Store) Delete(identifier string) {
	key := Key(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; ok {
		delete(s.entries, key)
		CacheEntries.Set(float64(len(s.entries)))
	}
}

// Put stores a payload for an identifier. When the entry count exceeds
// capacity, the oldest fifth of the capacity is evicted in one sweep.
func (s *Store) Put(identifier string, data []byte) {
	key := Key(identifier)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = Entry{Data: data, InsertedAt: time.Now()}

	if len(s.entries) > s.capacity {
		s.evictOldestLocked()
	}

	CacheEntries.Set(float64(len(s.entries)))
}

// evictOldestLocked removes the oldest capacity/evictFraction entries by
// insertion time. Runs under the write lock, so entries inserted after
// the sweep began cannot be touched. Caller must hold mu.
func (s *Store) evictOldestLocked() {
	type aged struct {
		key        string
		insertedAt time.Time
	}

	all := make([]aged, 0, len(s.entries))
	for k, e := range s.entries {
		all = append(all, aged{key: k, insertedAt: e.InsertedAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].insertedAt.Before(all[j].insertedAt)
	})

	n := s.capacity / evictFraction
	if n < 1 {
		n = 1
	}
	if n > len(all) {
		n = len(all)
	}
	for _, a := range all[:n] {
		delete(s.entries, a.key)
	}
	CacheEvictions.Add(float64(n))
}

// Len returns the current entry count.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
