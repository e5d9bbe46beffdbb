package application

import (
	"github.com/example/conference-program/internal/realtime"
)

// EventPublisher receives change notifications after successful writes.
// Services treat publication as fire-and-forget; a nil publisher disables it.
type EventPublisher interface {
	Publish(event realtime.ChangeEvent)
}

func publishChange(publisher EventPublisher, kind realtime.EntityKind, eventType realtime.EventType, entityID string, before, after any) {
	if publisher == nil {
		return
	}
	publisher.Publish(realtime.ChangeEvent{
		Kind:     kind,
		Type:     eventType,
		EntityID: entityID,
		Before:   before,
		After:    after,
	})
}
