// Package cache provides a small in-memory result cache with per-entry
// expiry and LRU eviction.
package cache

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// TTL is a thread-safe LRU cache whose entries expire after a time-to-live.
// Expired entries are treated as absent and dropped on access.
type TTL[V any] struct {
	maxEntries int
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry[V]
	head    *entry[V] // most recently used
	tail    *entry[V] // least recently used

	loads singleflight.Group
}

type entry[V any] struct {
	key     string
	value   V
	expires time.Time
	prev    *entry[V]
	next    *entry[V]
}

// New creates a cache holding at most maxEntries live entries. A nil clock
// uses real time.
func New[V any](maxEntries int, clock clockwork.Clock) *TTL[V] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &TTL[V]{
		maxEntries: maxEntries,
		clock:      clock,
		entries:    make(map[string]*entry[V]),
	}
}

// Get returns the cached value for key if it exists and has not expired.
func (c *TTL[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}
	if !c.clock.Now().Before(e.expires) {
		c.delete(e)
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Set stores value under key for ttl. A non-positive ttl removes the key.
func (c *TTL[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		if ttl <= 0 {
			c.delete(e)
			return
		}
		e.value = value
		e.expires = c.clock.Now().Add(ttl)
		c.moveToFront(e)
		return
	}
	if ttl <= 0 {
		return
	}

	e := &entry[V]{key: key, value: value, expires: c.clock.Now().Add(ttl)}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.delete(c.tail)
	}
}

// GetOrLoad returns the cached value for key, or calls load and caches its
// result for ttl. The second return value reports a cache hit.
//
// Concurrent misses on the same key share a single call to load; waiters
// report a miss.
func (c *TTL[V]) GetOrLoad(key string, ttl time.Duration, load func() V) (V, bool) {
	if v, ok := c.Get(key); ok {
		return v, true
	}
	res, _, _ := c.loads.Do(key, func() (any, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v := load()
		c.Set(key, v, ttl)
		return v, nil
	})
	v, _ := res.(V)
	return v, false
}

// Len returns the number of stored entries, including any not yet pruned.
func (c *TTL[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *TTL[V]) moveToFront(e *entry[V]) {
	if e == c.head {
		return
	}
	c.unlink(e)
	c.addToFront(e)
}

func (c *TTL[V]) addToFront(e *entry[V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *TTL[V]) unlink(e *entry[V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *TTL[V]) delete(e *entry[V]) {
	if e == nil {
		return
	}
	delete(c.entries, e.key)
	c.unlink(e)
}
