// Package cache provides response caching for identifier checks.
//
// The primary tier is an in-memory bounded map with TTL expiry: reads
// lazily purge expired entries, and inserts past capacity trigger a bulk
// eviction of the oldest fifth of the entries (a periodic sweep rather
// than per-access LRU bookkeeping, keeping the hot path O(1)).
//
// An optional Redis-backed tier (RedisStore) shares classified responses
// across runs and processes. It is consulted on memory misses and
// written through on success; any Redis failure degrades to a cache miss
// and never aborts checking.
package cache
