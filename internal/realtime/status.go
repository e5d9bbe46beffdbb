package realtime

import "sync"

// Status describes the connection state of a subscription, or the worst-case
// aggregate across all of them.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// StatusListener receives the aggregate status exactly once per transition.
type StatusListener func(Status)

// statusBoard derives the aggregate connection status from per-kind states
// and pushes transitions to registered listeners. Observers never poll.
type statusBoard struct {
	mu        sync.Mutex
	perKind   map[EntityKind]Status
	aggregate Status
	listeners []StatusListener
}

func newStatusBoard() *statusBoard {
	return &statusBoard{
		perKind:   make(map[EntityKind]Status),
		aggregate: StatusDisconnected,
	}
}

// set records the state of one subscription and notifies listeners when the
// aggregate changes. Listeners run outside the lock so they may call back
// into the service.
func (b *statusBoard) set(kind EntityKind, status Status) {
	b.mu.Lock()
	b.perKind[kind] = status
	next := b.worstLocked()
	changed := next != b.aggregate
	b.aggregate = next
	listeners := append([]StatusListener(nil), b.listeners...)
	b.mu.Unlock()

	if !changed {
		return
	}
	for _, listener := range listeners {
		listener(next)
	}
}

// reset drops all per-kind state, returning the aggregate to disconnected.
func (b *statusBoard) reset() {
	b.mu.Lock()
	b.perKind = make(map[EntityKind]Status)
	changed := b.aggregate != StatusDisconnected
	b.aggregate = StatusDisconnected
	listeners := append([]StatusListener(nil), b.listeners...)
	b.mu.Unlock()

	if !changed {
		return
	}
	for _, listener := range listeners {
		listener(StatusDisconnected)
	}
}

func (b *statusBoard) get() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.aggregate
}

func (b *statusBoard) kindStatus(kind EntityKind) Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	status, ok := b.perKind[kind]
	if !ok {
		return StatusDisconnected
	}
	return status
}

func (b *statusBoard) subscribe(listener StatusListener) {
	if listener == nil {
		return
	}
	b.mu.Lock()
	b.listeners = append(b.listeners, listener)
	b.mu.Unlock()
}

// worstLocked returns the weakest state across subscriptions: any
// disconnected wins, then any connecting, then connected. With no
// subscriptions at all the service is disconnected.
func (b *statusBoard) worstLocked() Status {
	if len(b.perKind) == 0 {
		return StatusDisconnected
	}
	worst := StatusConnected
	for _, status := range b.perKind {
		switch status {
		case StatusDisconnected:
			return StatusDisconnected
		case StatusConnecting:
			worst = StatusConnecting
		}
	}
	return worst
}
