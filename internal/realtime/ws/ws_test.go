package ws

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/example/conference-program/internal/realtime"
)

func TestHubClientRoundTrip(t *testing.T) {
	broker := realtime.NewBroker()
	hub := NewHub(broker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub)
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	client := NewClient(url, nil)
	defer client.Close()

	service := realtime.NewService(client, realtime.Options{
		GracePeriod:    time.Minute,
		ReconnectDelay: 10 * time.Millisecond,
	})
	defer service.UnsubscribeFromAll()

	reloaded := make(chan realtime.EntityKind, 8)
	handlers := realtime.Handlers{
		realtime.KindSessions: func(_ context.Context, kind realtime.EntityKind) {
			reloaded <- kind
		},
	}
	if err := service.SubscribeToAll(context.Background(), handlers); err != nil {
		t.Fatal(err)
	}
	if service.Status() != realtime.StatusConnected {
		t.Fatalf("status = %q", service.Status())
	}

	// Give the hub a moment to register the viewer before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Viewers() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Viewers() == 0 {
		t.Fatal("viewer never registered with hub")
	}

	broker.Publish(realtime.ChangeEvent{
		Kind:     realtime.KindSessions,
		Type:     realtime.EventDelete,
		EntityID: "s1",
		Before:   map[string]string{"id": "s1"},
	})

	select {
	case kind := <-reloaded:
		if kind != realtime.KindSessions {
			t.Fatalf("reload kind = %q", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("change event never reached the client")
	}

	entry, ok := service.Cached(realtime.KindSessions, "s1")
	if !ok {
		t.Fatal("optimistic cache missing the delivered event")
	}
	if entry.Event.Type != realtime.EventDelete {
		t.Fatalf("cached event type = %q", entry.Event.Type)
	}
}

func TestClientResubscribeReplacesStream(t *testing.T) {
	broker := realtime.NewBroker()
	hub := NewHub(broker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub)
	defer server.Close()
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	client := NewClient(url, nil)
	defer client.Close()

	first, err := client.Subscribe(ctx, realtime.KindSessions)
	if err != nil {
		t.Fatal(err)
	}

	// A second subscription for the same kind must supersede the first
	// without stalling on the client's own lock.
	done := make(chan realtime.Stream, 1)
	go func() {
		second, err := client.Subscribe(ctx, realtime.KindSessions)
		if err != nil {
			t.Error(err)
		}
		done <- second
	}()

	var second realtime.Stream
	select {
	case second = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("re-subscribe never returned")
	}
	if second == nil {
		t.Fatal("re-subscribe returned no stream")
	}
	defer second.Close()

	// The superseded stream's channel closes so its consumer can stop.
	select {
	case _, open := <-first.Events():
		if open {
			t.Fatal("expected the replaced stream to deliver nothing")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("replaced stream never closed")
	}
}

func TestClientDisconnectDegradesService(t *testing.T) {
	broker := realtime.NewBroker()
	hub := NewHub(broker, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	server := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(server.URL, "http")

	client := NewClient(url, nil)
	defer client.Close()

	service := realtime.NewService(client, realtime.Options{
		GracePeriod:       time.Minute,
		ReconnectAttempts: 2,
		ReconnectDelay:    10 * time.Millisecond,
	})
	defer service.UnsubscribeFromAll()

	if err := service.SubscribeToAll(context.Background(), nil); err != nil {
		t.Fatal(err)
	}

	// Server going away is a transport error; every subscription drops.
	server.CloseClientConnections()
	server.Close()

	deadline := time.Now().Add(2 * time.Second)
	for service.Status() != realtime.StatusDisconnected && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if service.Status() != realtime.StatusDisconnected {
		t.Fatalf("status = %q, want disconnected", service.Status())
	}
}
