// Package realtime keeps connected viewers consistent with the backing store
// within a bounded delay. It consumes per-entity change streams, tracks a
// connection state machine, maintains a short-lived optimistic cache, and
// fans change notifications out to reload callbacks. The service is an
// explicit handle with a controlled lifetime; tests and views create and
// dispose their own instances.
package realtime

import (
	"context"
	"errors"
)

// EntityKind identifies one watched collection.
type EntityKind string

const (
	KindSessions  EntityKind = "sessions"
	KindHalls     EntityKind = "halls"
	KindDays      EntityKind = "days"
	KindTimeSlots EntityKind = "time_slots"
)

// WatchedKinds returns every collection the synchronization service follows,
// in a stable order.
func WatchedKinds() []EntityKind {
	return []EntityKind{KindSessions, KindHalls, KindDays, KindTimeSlots}
}

// EventType discriminates change stream events.
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventUpdate EventType = "UPDATE"
	EventDelete EventType = "DELETE"
)

// ChangeEvent is one discrete change delivered on a stream. Delivery is
// at-least-once; consumers must treat a duplicate as a harmless overwrite.
type ChangeEvent struct {
	Kind     EntityKind `json:"kind"`
	Type     EventType  `json:"type"`
	EntityID string     `json:"entity_id"`
	Before   any        `json:"before,omitempty"`
	After    any        `json:"after,omitempty"`
}

// Stream delivers change events for a single entity kind in arrival order.
// There is no ordering guarantee across streams. The events channel closes
// when the stream ends, whether by Close or by transport failure.
type Stream interface {
	Events() <-chan ChangeEvent
	Close()
}

// Source opens change streams. The in-process Broker and the websocket
// client both satisfy it.
type Source interface {
	Subscribe(ctx context.Context, kind EntityKind) (Stream, error)
}

var (
	// ErrStreamDisconnected reports a stream that ended without Close being
	// called. It drives the status indicator and is never fatal.
	ErrStreamDisconnected = errors.New("realtime: stream disconnected")
	// ErrReconnectFailed reports permanent reconnect exhaustion; the caller
	// is responsible for surfacing a manual-refresh affordance.
	ErrReconnectFailed = errors.New("realtime: reconnect attempts exhausted")
	// ErrAlreadySubscribed is returned when SubscribeToAll is called on a
	// service that already holds open streams.
	ErrAlreadySubscribed = errors.New("realtime: already subscribed")
)
