package realtime

import (
	"context"
	"sync"
)

const streamBuffer = 64

// Broker is the in-process change-stream source. Application services publish
// every successful mutation into it; subscribers receive events for their
// kind in publish order. Slow subscribers shed their oldest buffered event
// rather than blocking publishers; the authoritative reload supersedes
// anything dropped.
type Broker struct {
	mu   sync.RWMutex
	subs map[EntityKind]map[*brokerStream]struct{}
}

// NewBroker returns an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[EntityKind]map[*brokerStream]struct{})}
}

// Publish delivers the event to every subscriber of its kind.
func (b *Broker) Publish(event ChangeEvent) {
	if b == nil {
		return
	}
	b.mu.RLock()
	streams := make([]*brokerStream, 0, len(b.subs[event.Kind]))
	for stream := range b.subs[event.Kind] {
		streams = append(streams, stream)
	}
	b.mu.RUnlock()

	for _, stream := range streams {
		stream.deliver(event)
	}
}

// Subscribe opens a stream for one entity kind. The stream closes when the
// caller invokes Close or the context is cancelled.
func (b *Broker) Subscribe(ctx context.Context, kind EntityKind) (Stream, error) {
	stream := &brokerStream{
		broker: b,
		kind:   kind,
		events: make(chan ChangeEvent, streamBuffer),
	}

	b.mu.Lock()
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[*brokerStream]struct{})
	}
	b.subs[kind][stream] = struct{}{}
	b.mu.Unlock()

	if ctx != nil && ctx.Done() != nil {
		go func() {
			<-ctx.Done()
			stream.Close()
		}()
	}

	return stream, nil
}

func (b *Broker) remove(stream *brokerStream) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[stream.kind]; ok {
		delete(set, stream)
		if len(set) == 0 {
			delete(b.subs, stream.kind)
		}
	}
}

type brokerStream struct {
	broker *Broker
	kind   EntityKind

	mu     sync.Mutex
	closed bool
	events chan ChangeEvent
}

func (s *brokerStream) Events() <-chan ChangeEvent {
	return s.events
}

// Close unregisters the stream and closes its channel. Safe to call more
// than once.
func (s *brokerStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.broker.remove(s)

	s.mu.Lock()
	close(s.events)
	s.mu.Unlock()
}

func (s *brokerStream) deliver(event ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	for {
		select {
		case s.events <- event:
			return
		default:
			// Buffer full: shed the oldest event to keep per-stream order
			// moving forward.
			select {
			case <-s.events:
			default:
			}
		}
	}
}
