package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TTLCache maps request signatures to payloads that expire ttl after they were stored.
// There is no size bound and no background sweeping: expired entries are dropped lazily
// when they are read.
type TTLCache[V any] struct {
	mu    sync.Mutex
	data  map[string]entry[V]
	ttl   time.Duration
	clock clockwork.Clock
}

type entry[V any] struct {
	payload  V
	storedAt time.Time
}

// NewTTLCache creates a cache whose entries live for ttl. A nil clock uses wall time.
func NewTTLCache[V any](ttl time.Duration, clock clockwork.Clock) *TTLCache[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[V]{data: make(map[string]entry[V]), ttl: ttl, clock: clock}
}

// Get returns the payload stored under key while it is still fresh.
func (c *TTLCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	it, ok := c.data[key]
	if !ok {
		return zero, false
	}
	if c.clock.Since(it.storedAt) >= c.ttl {
		delete(c.data, key)
		return zero, false
	}
	return it.payload, true
}

// Put stores payload under key, replacing any previous entry and its timestamp.
func (c *TTLCache[V]) Put(key string, payload V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = entry[V]{payload: payload, storedAt: c.clock.Now()}
}

// Delete removes an entry.
func (c *TTLCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
}

// Clear drops every entry.
func (c *TTLCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry[V])
}

// Len reports the number of stored entries, including expired ones not yet read.
func (c *TTLCache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}

// TTL returns the configured time-to-live.
func (c *TTLCache[V]) TTL() time.Duration { return c.ttl }
