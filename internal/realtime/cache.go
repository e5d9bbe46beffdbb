package realtime

import (
	"sync"
	"time"
)

// DefaultGracePeriod is how long an optimistic cache entry survives without a
// newer event for the same key.
const DefaultGracePeriod = 5 * time.Second

type cacheKey struct {
	kind EntityKind
	id   string
}

// CacheEntry is a change assumed applied, pending authoritative reload.
type CacheEntry struct {
	Event      ChangeEvent
	Optimistic bool
	StoredAt   time.Time
}

type cacheSlot struct {
	entry CacheEntry
	timer *time.Timer
}

// OptimisticCache holds short-lived local records of observed changes keyed
// by (entity kind, entity id). Each write arms an eviction timer; a newer
// event for the same key resets it. Writes for different keys never contend
// beyond the map lock, and a same-key race resolves as last write wins.
type OptimisticCache struct {
	mu    sync.Mutex
	grace time.Duration
	now   func() time.Time
	slots map[cacheKey]*cacheSlot
}

// NewOptimisticCache builds a cache with the given grace period. A
// non-positive grace falls back to DefaultGracePeriod; a nil now falls back
// to time.Now.
func NewOptimisticCache(grace time.Duration, now func() time.Time) *OptimisticCache {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if now == nil {
		now = time.Now
	}
	return &OptimisticCache{
		grace: grace,
		now:   now,
		slots: make(map[cacheKey]*cacheSlot),
	}
}

// Put stores or overwrites the entry for the event's key and resets its
// eviction timer.
func (c *OptimisticCache) Put(event ChangeEvent) {
	key := cacheKey{kind: event.Kind, id: event.EntityID}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slot, ok := c.slots[key]; ok {
		slot.timer.Stop()
	}
	slot := &cacheSlot{
		entry: CacheEntry{Event: event, Optimistic: true, StoredAt: c.now()},
	}
	slot.timer = time.AfterFunc(c.grace, func() {
		c.evict(key, slot)
	})
	c.slots[key] = slot
}

// Get returns the live entry for a key.
func (c *OptimisticCache) Get(kind EntityKind, id string) (CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[cacheKey{kind: kind, id: id}]
	if !ok {
		return CacheEntry{}, false
	}
	return slot.entry, true
}

// Len reports the number of live entries.
func (c *OptimisticCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.slots)
}

// Clear drops every entry and stops all pending eviction timers.
func (c *OptimisticCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, slot := range c.slots {
		slot.timer.Stop()
		delete(c.slots, key)
	}
}

// evict removes a slot only if it is still the one the timer was armed for;
// a Put that raced the firing timer wins.
func (c *OptimisticCache) evict(key cacheKey, armed *cacheSlot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if current, ok := c.slots[key]; ok && current == armed {
		delete(c.slots, key)
	}
}
