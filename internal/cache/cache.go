// Package cache provides a TTL key/value cache with single-flight
// coalescing of concurrent misses. Implementations are injectable so
// tests stay deterministic; an in-memory store is the default and a
// Redis tier can be swapped in behind the same interface.
package cache

import (
	"context"
	"sync"
	"time"
)

// Cache is the minimal TTL store contract.
type Cache interface {
	// Get returns the cached value for key, or found=false on a miss
	// (including expiry).
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	// Set stores value under key for ttl. A non-positive ttl is a no-op.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process Cache guarded by a RWMutex.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

// NewMemory creates an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

// Get implements Cache.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if m.now().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set implements Cache.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	m.entries[key] = memoryEntry{value: value, expiresAt: m.now().Add(ttl)}
	m.mu.Unlock()
	return nil
}

// Len reports the number of live entries, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

type inflight struct {
	done  chan struct{}
	value []byte
	err   error
}

// Loader wraps a Cache with miss coalescing: concurrent callers asking
// for the same missing key share one outstanding fetch instead of each
// issuing their own.
type Loader struct {
	cache Cache

	mu    sync.Mutex
	calls map[string]*inflight
}

// NewLoader wraps cache with single-flight semantics.
func NewLoader(cache Cache) *Loader {
	return &Loader{cache: cache, calls: make(map[string]*inflight)}
}

// GetOrFetch returns the cached value for key or, on a miss, runs fetch
// exactly once across concurrent callers and caches its result for ttl.
// Fetch errors are not cached.
func (l *Loader) GetOrFetch(ctx context.Context, key string, ttl time.Duration, fetch func(ctx context.Context) ([]byte, error)) ([]byte, error) {
	if value, found, err := l.cache.Get(ctx, key); err == nil && found {
		return value, nil
	}

	l.mu.Lock()
	if call, ok := l.calls[key]; ok {
		l.mu.Unlock()
		select {
		case <-call.done:
			return call.value, call.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	call := &inflight{done: make(chan struct{})}
	l.calls[key] = call
	l.mu.Unlock()

	call.value, call.err = fetch(ctx)
	if call.err == nil {
		// Ignore storage errors here: a failed Set only costs a refetch.
		_ = l.cache.Set(ctx, key, call.value, ttl)
	}
	close(call.done)

	l.mu.Lock()
	delete(l.calls, key)
	l.mu.Unlock()

	return call.value, call.err
}
