package application

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/persistence/sqlite"
	"github.com/example/conference-program/internal/realtime"
	"github.com/example/conference-program/internal/testfixtures"
)

type eventRecorder struct {
	mu     sync.Mutex
	events []realtime.ChangeEvent
}

func (r *eventRecorder) Publish(event realtime.ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) all() []realtime.ChangeEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]realtime.ChangeEvent, len(r.events))
	copy(out, r.events)
	return out
}

func newSessionServiceTest(t *testing.T) (*SessionService, *sqlite.Storage, *eventRecorder) {
	t.Helper()
	storage, err := sqlite.Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	recorder := &eventRecorder{}
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	ids := testfixtures.NewIDGenerator("sess")
	service := NewSessionService(storage, storage, recorder, ids.NextFunc(), clock.NowFunc(), nil)
	return service, storage, recorder
}

func editor() Principal {
	return Principal{AccountID: "acct-editor"}
}

func lectureInput(dayID, stageID, slotID string) SessionInput {
	return SessionInput{
		Title:       "Opening Keynote",
		SessionType: "lecture",
		DayID:       dayID,
		StageID:     stageID,
		TimeSlotID:  slotID,
		Extra:       map[string]string{"speaker_id": "person-1"},
		Participants: []ParticipantInput{
			{PersonID: "person-1", Role: "speaker"},
		},
	}
}

func TestSessionServiceCreateSession(t *testing.T) {
	service, storage, recorder := newSessionServiceTest(t)
	ctx := context.Background()

	session, err := service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if session.ID == "" {
		t.Fatal("expected generated session ID")
	}

	stored, err := storage.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if stored.Title != "Opening Keynote" {
		t.Errorf("unexpected title %q", stored.Title)
	}

	participants, err := storage.ListParticipants(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(participants) != 1 || participants[0].PersonID != "person-1" {
		t.Errorf("unexpected participants %+v", participants)
	}

	events := recorder.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 change event, got %d", len(events))
	}
	if events[0].Kind != realtime.KindSessions || events[0].Type != realtime.EventInsert {
		t.Errorf("unexpected event %+v", events[0])
	}
	if events[0].EntityID != session.ID {
		t.Errorf("event carries wrong entity ID %q", events[0].EntityID)
	}
}

func TestSessionServiceCreateRequiresPrincipal(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)

	_, err := service.CreateSession(context.Background(), CreateSessionParams{
		Input: lectureInput("day-1", "hall-1", "slot-1"),
	})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSessionServiceRejectsUnknownType(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)

	input := lectureInput("day-1", "hall-1", "slot-1")
	input.SessionType = "cabaret"

	_, err := service.CreateSession(context.Background(), CreateSessionParams{
		Principal: editor(),
		Input:     input,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["session_type"]; !ok {
		t.Errorf("expected session_type field error, got %+v", vErr.FieldErrors)
	}
}

func TestSessionServiceRejectsMissingTypeFields(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)

	input := SessionInput{
		Title:       "Ethics Panel",
		SessionType: "panel",
		DayID:       "day-1",
		StageID:     "hall-1",
		TimeSlotID:  "slot-1",
		Extra:       map[string]string{"panelist_ids": "p1,p2"},
	}

	_, err := service.CreateSession(context.Background(), CreateSessionParams{
		Principal: editor(),
		Input:     input,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["moderator_id"]; !ok {
		t.Errorf("expected moderator_id error, got %+v", vErr.FieldErrors)
	}
}

func TestSessionServiceRejectsDisallowedRole(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)

	input := lectureInput("day-1", "hall-1", "slot-1")
	input.Participants = []ParticipantInput{{PersonID: "person-1", Role: "moderator"}}

	_, err := service.CreateSession(context.Background(), CreateSessionParams{
		Principal: editor(),
		Input:     input,
	})

	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if _, ok := vErr.FieldErrors["participants[0].role"]; !ok {
		t.Errorf("expected role error, got %+v", vErr.FieldErrors)
	}
}

func TestSessionServicePlacementConflict(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)
	ctx := context.Background()

	first, err := service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	})

	var conflict *PlacementConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected PlacementConflictError, got %v", err)
	}
	if conflict.ExistingID != first.ID {
		t.Errorf("conflict names %q, want %q", conflict.ExistingID, first.ID)
	}
}

func TestSessionServiceUpdateKeepsOwnCell(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)
	ctx := context.Background()

	created, err := service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	input := lectureInput("day-1", "hall-1", "slot-1")
	input.Title = "Revised Keynote"
	updated, err := service.UpdateSession(ctx, UpdateSessionParams{
		Principal: editor(),
		SessionID: created.ID,
		Input:     input,
	})
	if err != nil {
		t.Fatalf("update in place failed: %v", err)
	}
	if updated.Title != "Revised Keynote" {
		t.Errorf("unexpected title %q", updated.Title)
	}
}

func TestSessionServiceUpdateIntoOccupiedCell(t *testing.T) {
	service, _, _ := newSessionServiceTest(t)
	ctx := context.Background()

	if _, err := service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	}); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	second, err := service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-2"),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	_, err = service.UpdateSession(ctx, UpdateSessionParams{
		Principal: editor(),
		SessionID: second.ID,
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	})

	var conflict *PlacementConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected PlacementConflictError, got %v", err)
	}
}

func TestSessionServiceDeletePublishesEvent(t *testing.T) {
	service, _, recorder := newSessionServiceTest(t)
	ctx := context.Background()

	created, err := service.CreateSession(ctx, CreateSessionParams{
		Principal: editor(),
		Input:     lectureInput("day-1", "hall-1", "slot-1"),
	})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	if err := service.DeleteSession(ctx, editor(), created.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := service.GetSession(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	events := recorder.all()
	last := events[len(events)-1]
	if last.Type != realtime.EventDelete || last.EntityID != created.ID {
		t.Errorf("unexpected final event %+v", last)
	}
}

func TestSessionServiceGetResolvesRoles(t *testing.T) {
	service, storage, _ := newSessionServiceTest(t)
	ctx := context.Background()

	speaker := testfixtures.NewPerson("Ada Lovelace")
	if err := storage.CreatePerson(ctx, speaker); err != nil {
		t.Fatalf("CreatePerson failed: %v", err)
	}

	input := lectureInput("day-1", "hall-1", "slot-1")
	input.Extra = map[string]string{"speaker_id": speaker.ID}
	input.Participants = []ParticipantInput{
		{PersonID: speaker.ID, Role: "speaker"},
		{PersonID: "ghost", Role: "speaker"},
	}

	created, err := service.CreateSession(ctx, CreateSessionParams{Principal: editor(), Input: input})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	detail, err := service.GetSession(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(detail.Roles.Speakers) != 2 {
		t.Fatalf("expected 2 speakers, got %+v", detail.Roles.Speakers)
	}
	if detail.Roles.Speakers[0] != "Ada Lovelace" {
		t.Errorf("expected resolved name first, got %q", detail.Roles.Speakers[0])
	}
	if detail.Roles.Speakers[1] != "Unknown Speaker" {
		t.Errorf("expected placeholder for dangling person, got %q", detail.Roles.Speakers[1])
	}
}

var _ persistence.SessionRepository = (*sqlite.Storage)(nil)
