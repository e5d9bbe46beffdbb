// Package ws carries change events over websockets: the Hub fans the
// in-process broker out to connected viewers, and the Client turns a
// websocket connection back into per-kind change streams for a remote
// synchronization service.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/conference-program/internal/realtime"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
}

// Hub broadcasts every change event published on the broker to all connected
// websocket viewers. A viewer that cannot keep up is dropped; its client
// reconnects through the bounded retry in the synchronization service.
type Hub struct {
	broker *realtime.Broker
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}

	// writeMu serializes writes: one pump goroutine runs per watched kind,
	// and gorilla connections permit a single concurrent writer.
	writeMu sync.Mutex
}

// NewHub wires a hub to the given broker.
func NewHub(broker *realtime.Broker, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		broker: broker,
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Run subscribes to every watched kind and pumps events to viewers until the
// context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, kind := range realtime.WatchedKinds() {
		stream, err := h.broker.Subscribe(ctx, kind)
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range stream.Events() {
				h.broadcast(event)
			}
		}()
	}
	wg.Wait()
	return nil
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	total := len(h.conns)
	h.mu.Unlock()
	h.logger.Info("stream viewer connected", "viewers", total)

	// Viewers never send application data; the read loop only detects
	// disconnects.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) broadcast(event realtime.ChangeEvent) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("dropping slow stream viewer", "error", err)
			h.drop(conn)
		}
	}
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	_, present := h.conns[conn]
	delete(h.conns, conn)
	h.mu.Unlock()
	if present {
		conn.Close()
		h.logger.Info("stream viewer disconnected")
	}
}

// Viewers reports the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}
