// Package ttlcache implements the generic idle-expiry map of spec §4.1: a
// concurrent map whose entries are evicted a fixed idle duration after
// their last access, with expiry refreshed on every hit.
package ttlcache

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

// entry wraps a cached value with its expiry, stored as a Unix-nano value
// so it can be refreshed with a single relaxed atomic store (spec §4.1:
// "get's expiry refresh is a relaxed atomic write").
type entry[V any] struct {
	value    V
	expireAt atomic.Int64
}

// Cache is a generic TTL cache safe for concurrent use. The zero value is
// not usable; construct with New.
type Cache[K comparable, V any] struct {
	idle  time.Duration
	clock clockwork.Clock

	mu      sync.RWMutex
	entries map[K]*entry[V]
}

// New builds a Cache that evicts entries idle for longer than idle. clock
// defaults to the real wall clock; tests can pass a clockwork.FakeClock to
// control expiry deterministically.
func New[K comparable, V any](idle time.Duration, clock clockwork.Clock) *Cache[K, V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Cache[K, V]{
		idle:    idle,
		clock:   clock,
		entries: make(map[K]*entry[V]),
	}
}

// Get returns a copy of the cached value for k, refreshing its expiry, if
// present and not yet expired.
func (c *Cache[K, V]) Get(k K) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}

	now := c.clock.Now()
	if now.UnixNano() >= e.expireAt.Load() {
		return zero, false
	}
	e.expireAt.Store(now.Add(c.idle).UnixNano())
	return e.value, true
}

// Insert stores v under k with a fresh expiry.
func (c *Cache[K, V]) Insert(k K, v V) {
	e := &entry[V]{value: v}
	e.expireAt.Store(c.clock.Now().Add(c.idle).UnixNano())

	c.mu.Lock()
	c.entries[k] = e
	c.mu.Unlock()
}

// Remove evicts k unconditionally.
func (c *Cache[K, V]) Remove(k K) {
	c.mu.Lock()
	delete(c.entries, k)
	c.mu.Unlock()
}

// RemoveMatching evicts every key for which match returns true, used by
// clientmanager.RemoveClient to drop every (config_hash, db) entry for one
// server.
func (c *Cache[K, V]) RemoveMatching(match func(K) bool) (evicted int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if match(k) {
			delete(c.entries, k)
			evicted++
		}
	}
	return evicted
}

// Sweep drops every expired entry and reports how many were evicted and
// how many remain.
func (c *Cache[K, V]) Sweep() (evicted, remaining int) {
	now := c.clock.Now().UnixNano()

	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.entries {
		if now >= e.expireAt.Load() {
			delete(c.entries, k)
			evicted++
		}
	}
	remaining = len(c.entries)
	return evicted, remaining
}

// Len returns the current entry count, expired or not.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
