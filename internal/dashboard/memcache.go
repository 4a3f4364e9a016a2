package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// MemoryCache is an in-process LRU Cache whose entries expire after a TTL.
type MemoryCache struct {
	maxEntries int
	ttl        time.Duration
	clock      clockwork.Clock

	mu      sync.Mutex
	entries map[string]*entry
	head    *entry // most recently used
	tail    *entry // least recently used
}

type entry struct {
	key       string
	value     Summary
	expiresAt time.Time
	prev      *entry
	next      *entry
}

// NewMemoryCache creates a cache holding at most maxEntries summaries, each
// for ttl. A nil clock uses the wall clock.
func NewMemoryCache(maxEntries int, ttl time.Duration, clock clockwork.Clock) *MemoryCache {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		ttl:        ttl,
		clock:      clock,
		entries:    make(map[string]*entry),
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (Summary, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return Summary{}, false, nil
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.remove(e)
		delete(c.entries, key)
		return Summary{}, false, nil
	}
	c.moveToFront(e)
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value Summary) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.clock.Now().Add(c.ttl)
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		c.moveToFront(e)
		return nil
	}

	e := &entry{key: key, value: value, expiresAt: expiresAt}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
	return nil
}

// Len reports the number of cached entries, including expired ones not yet
// evicted.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *MemoryCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *MemoryCache) addToFront(e *entry) {
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

func (c *MemoryCache) remove(e *entry) {
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

func (c *MemoryCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
