package realtime

import (
	"testing"
	"time"
)

func sessionEvent(id string, eventType EventType) ChangeEvent {
	return ChangeEvent{Kind: KindSessions, Type: eventType, EntityID: id}
}

func TestOptimisticCache(t *testing.T) {
	t.Run("put then get", func(t *testing.T) {
		cache := NewOptimisticCache(time.Minute, nil)
		defer cache.Clear()

		cache.Put(sessionEvent("s1", EventInsert))

		entry, ok := cache.Get(KindSessions, "s1")
		if !ok {
			t.Fatal("expected entry for s1")
		}
		if !entry.Optimistic {
			t.Error("entry must be tagged optimistic")
		}
		if entry.Event.Type != EventInsert {
			t.Errorf("event type = %q", entry.Event.Type)
		}
	})

	t.Run("keys are scoped by kind", func(t *testing.T) {
		cache := NewOptimisticCache(time.Minute, nil)
		defer cache.Clear()

		cache.Put(sessionEvent("x", EventInsert))
		cache.Put(ChangeEvent{Kind: KindHalls, Type: EventUpdate, EntityID: "x"})

		if cache.Len() != 2 {
			t.Fatalf("expected 2 entries, got %d", cache.Len())
		}
		entry, _ := cache.Get(KindHalls, "x")
		if entry.Event.Type != EventUpdate {
			t.Errorf("hall entry type = %q", entry.Event.Type)
		}
	})

	t.Run("entry evicts after the grace period", func(t *testing.T) {
		cache := NewOptimisticCache(40*time.Millisecond, nil)
		defer cache.Clear()

		cache.Put(sessionEvent("s1", EventInsert))
		if _, ok := cache.Get(KindSessions, "s1"); !ok {
			t.Fatal("entry missing immediately after Put")
		}

		time.Sleep(120 * time.Millisecond)
		if _, ok := cache.Get(KindSessions, "s1"); ok {
			t.Fatal("entry survived past the grace period")
		}
	})

	t.Run("newer event resets the eviction timer", func(t *testing.T) {
		cache := NewOptimisticCache(80*time.Millisecond, nil)
		defer cache.Clear()

		cache.Put(sessionEvent("s1", EventInsert))
		time.Sleep(50 * time.Millisecond)
		cache.Put(sessionEvent("s1", EventUpdate))
		time.Sleep(50 * time.Millisecond)

		// 100ms after the first Put, but only 50ms after the refresh.
		entry, ok := cache.Get(KindSessions, "s1")
		if !ok {
			t.Fatal("refreshed entry was evicted")
		}
		if entry.Event.Type != EventUpdate {
			t.Errorf("last write must win, got %q", entry.Event.Type)
		}

		time.Sleep(120 * time.Millisecond)
		if _, ok := cache.Get(KindSessions, "s1"); ok {
			t.Fatal("refreshed entry never evicted")
		}
	})

	t.Run("duplicate delivery is a harmless overwrite", func(t *testing.T) {
		cache := NewOptimisticCache(time.Minute, nil)
		defer cache.Clear()

		event := sessionEvent("s1", EventDelete)
		cache.Put(event)
		cache.Put(event)

		if cache.Len() != 1 {
			t.Fatalf("duplicate created a second entry: %d", cache.Len())
		}
	})

	t.Run("clear stops timers and empties the cache", func(t *testing.T) {
		cache := NewOptimisticCache(time.Minute, nil)
		cache.Put(sessionEvent("a", EventInsert))
		cache.Put(sessionEvent("b", EventInsert))

		cache.Clear()
		if cache.Len() != 0 {
			t.Fatalf("expected empty cache, got %d entries", cache.Len())
		}
		if _, ok := cache.Get(KindSessions, "a"); ok {
			t.Fatal("entry survived Clear")
		}
	})
}
