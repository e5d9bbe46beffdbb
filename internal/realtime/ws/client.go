package ws

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/conference-program/internal/realtime"
)

// Client adapts one websocket connection into a realtime.Source. All watched
// kinds share the connection; events are routed to per-kind streams by their
// kind tag. A transport error ends every stream at once, which the
// synchronization service observes as disconnects and answers with its
// bounded reconnect.
type Client struct {
	url    string
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	reading bool
	subs    map[realtime.EntityKind]*clientStream
}

// NewClient prepares a client for the given stream endpoint URL. No
// connection is made until the first Subscribe.
func NewClient(url string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:    url,
		logger: logger,
		subs:   make(map[realtime.EntityKind]*clientStream),
	}
}

// Subscribe registers interest in one entity kind, dialing the endpoint on
// first use.
func (c *Client) Subscribe(ctx context.Context, kind realtime.EntityKind) (realtime.Stream, error) {
	c.mu.Lock()

	if c.conn == nil {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("ws: dial %s: %w", c.url, err)
		}
		c.conn = conn
	}

	// A re-subscribe replaces the previous stream. It is unhooked here and
	// closed only after the lock is released; Close re-enters the client
	// through remove.
	replaced := c.subs[kind]

	stream := &clientStream{
		client: c,
		kind:   kind,
		events: make(chan realtime.ChangeEvent, 64),
	}
	c.subs[kind] = stream

	if !c.reading {
		c.reading = true
		go c.readLoop(c.conn)
	}
	c.mu.Unlock()

	if replaced != nil {
		replaced.Close()
	}
	return stream, nil
}

// readLoop routes incoming events until the transport fails, then closes
// every stream so consumers observe the disconnect.
func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var event realtime.ChangeEvent
		if err := conn.ReadJSON(&event); err != nil {
			c.logger.Warn("stream connection lost", "error", err)
			c.teardown(conn)
			return
		}

		c.mu.Lock()
		stream := c.subs[event.Kind]
		c.mu.Unlock()
		if stream != nil {
			stream.deliver(event)
		}
	}
}

func (c *Client) teardown(conn *websocket.Conn) {
	conn.Close()

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.reading = false
	}
	streams := make([]*clientStream, 0, len(c.subs))
	for _, stream := range c.subs {
		streams = append(streams, stream)
	}
	c.subs = make(map[realtime.EntityKind]*clientStream)
	c.mu.Unlock()

	for _, stream := range streams {
		stream.Close()
	}
}

// Close drops the connection and ends every open stream.
func (c *Client) Close() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		c.teardown(conn)
	}
}

func (c *Client) remove(stream *clientStream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs[stream.kind] == stream {
		delete(c.subs, stream.kind)
	}
}

type clientStream struct {
	client *Client
	kind   realtime.EntityKind

	mu     sync.Mutex
	closed bool
	events chan realtime.ChangeEvent
}

func (s *clientStream) Events() <-chan realtime.ChangeEvent {
	return s.events
}

func (s *clientStream) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.events)
	s.mu.Unlock()

	s.client.remove(s)
}

func (s *clientStream) deliver(event realtime.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		// Full buffer: drop; the authoritative reload covers the gap.
	}
}
