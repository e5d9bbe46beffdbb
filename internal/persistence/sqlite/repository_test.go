package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

func setupStoreTest(t *testing.T) (*Store, func()) {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "test.db")
	store, err := OpenStore(context.Background(), dsn)
	if err != nil {
		t.Fatalf("OpenStore failed: %v", err)
	}
	return store, func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	}
}

var repoTestTime = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func seedStoreDay(t *testing.T, store *Store, id string) persistence.ConferenceDay {
	t.Helper()

	day := persistence.ConferenceDay{
		ID:        id,
		Name:      "Day " + id,
		Date:      time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		CreatedAt: repoTestTime,
		UpdatedAt: repoTestTime,
	}
	if err := store.CreateDay(context.Background(), day); err != nil {
		t.Fatalf("CreateDay failed: %v", err)
	}
	return day
}

func seedStoreSlot(t *testing.T, store *Store, id, dayID string, order int) persistence.TimeSlot {
	t.Helper()

	slot := persistence.TimeSlot{
		ID:        id,
		DayID:     dayID,
		Start:     "08:00",
		End:       "08:30",
		SlotOrder: order,
		CreatedAt: repoTestTime,
		UpdatedAt: repoTestTime,
	}
	if err := store.CreateSlots(context.Background(), []persistence.TimeSlot{slot}); err != nil {
		t.Fatalf("CreateSlots failed: %v", err)
	}
	return slot
}

func seedStoreSession(t *testing.T, store *Store, id, dayID, stageID, slotID string) persistence.Session {
	t.Helper()

	session := persistence.Session{
		ID:          id,
		Title:       "Session " + id,
		SessionType: "lecture",
		DayID:       dayID,
		StageID:     stageID,
		TimeSlotID:  slotID,
		CreatedAt:   repoTestTime,
		UpdatedAt:   repoTestTime,
	}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	return session
}

func TestDayRepository_Lifecycle(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	day := seedStoreDay(t, store, "d1")

	retrieved, err := store.GetDay(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDay failed: %v", err)
	}
	if retrieved.Name != day.Name {
		t.Errorf("expected name %q, got %q", day.Name, retrieved.Name)
	}
	if !retrieved.Date.Equal(day.Date) {
		t.Errorf("expected date %v, got %v", day.Date, retrieved.Date)
	}

	day.Name = "Opening Day"
	day.UpdatedAt = repoTestTime.Add(time.Hour)
	if err := store.UpdateDay(ctx, day); err != nil {
		t.Fatalf("UpdateDay failed: %v", err)
	}
	retrieved, err = store.GetDay(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDay after update failed: %v", err)
	}
	if retrieved.Name != "Opening Day" {
		t.Errorf("expected updated name, got %q", retrieved.Name)
	}

	if err := store.DeleteDay(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDay failed: %v", err)
	}
	if _, err := store.GetDay(ctx, "d1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteDay(ctx, "d1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated delete, got %v", err)
	}
}

func TestDayRepository_DuplicateID(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	day := seedStoreDay(t, store, "d1")
	if err := store.CreateDay(context.Background(), day); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated id, got %v", err)
	}
}

func TestTimeSlotRepository_OrderUniqueness(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)

	rival := persistence.TimeSlot{
		ID:        "slot2",
		DayID:     "d1",
		Start:     "08:00",
		End:       "08:30",
		SlotOrder: 1,
		CreatedAt: repoTestTime,
		UpdatedAt: repoTestTime,
	}
	err := store.CreateSlots(ctx, []persistence.TimeSlot{rival})
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated slot order, got %v", err)
	}

	slots, err := store.TimeSlotRepository.ListSlots(ctx, "d1")
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 1 || slots[0].ID != "slot1" {
		t.Fatalf("expected only the first slot to survive, got %+v", slots)
	}
}

func TestTimeSlotRepository_BatchRollsBackOnClash(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)

	batch := []persistence.TimeSlot{
		{ID: "slot2", DayID: "d1", Start: "08:30", End: "09:00", SlotOrder: 2, CreatedAt: repoTestTime, UpdatedAt: repoTestTime},
		{ID: "slot3", DayID: "d1", Start: "08:00", End: "08:30", SlotOrder: 1, CreatedAt: repoTestTime, UpdatedAt: repoTestTime},
	}
	if err := store.CreateSlots(ctx, batch); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	slots, err := store.TimeSlotRepository.ListSlots(ctx, "d1")
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected the clashing batch to write nothing, got %d slots", len(slots))
	}
}

func TestTimeSlotRepository_UpdateKeepsIdentityColumns(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)

	title := "Lunch"
	update := persistence.TimeSlot{
		ID:         "slot1",
		Start:      "12:00",
		End:        "12:30",
		IsBreak:    true,
		BreakTitle: &title,
		UpdatedAt:  repoTestTime.Add(time.Hour),
	}
	if err := store.TimeSlotRepository.UpdateSlot(ctx, update); err != nil {
		t.Fatalf("UpdateSlot failed: %v", err)
	}

	slots, err := store.TimeSlotRepository.ListSlots(ctx, "d1")
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(slots) != 1 {
		t.Fatalf("expected one slot, got %d", len(slots))
	}
	got := slots[0]
	if got.DayID != "d1" || got.SlotOrder != 1 {
		t.Errorf("expected day and order to survive the update, got %+v", got)
	}
	if !got.CreatedAt.Equal(repoTestTime) {
		t.Errorf("expected created_at untouched, got %v", got.CreatedAt)
	}
	if !got.IsBreak || got.BreakTitle == nil || *got.BreakTitle != "Lunch" {
		t.Errorf("expected break fields applied, got %+v", got)
	}
}

func TestSessionRepository_PlacementUniqueness(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)
	seedStoreSession(t, store, "s1", "d1", "h1", "slot1")

	rival := persistence.Session{
		ID:          "s2",
		Title:       "Rival",
		SessionType: "lecture",
		DayID:       "d1",
		StageID:     "h1",
		TimeSlotID:  "slot1",
		CreatedAt:   repoTestTime,
		UpdatedAt:   repoTestTime,
	}
	if err := store.CreateSession(ctx, rival); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for an occupied cell, got %v", err)
	}

	occupant, err := store.FindByPlacement(ctx, "d1", "h1", "slot1")
	if err != nil {
		t.Fatalf("FindByPlacement failed: %v", err)
	}
	if occupant.ID != "s1" {
		t.Errorf("expected s1 to hold the cell, got %q", occupant.ID)
	}
	if _, err := store.FindByPlacement(ctx, "d1", "h2", "slot1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for an empty cell, got %v", err)
	}
}

func TestSessionRepository_UpdateIntoOccupiedCell(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)
	seedStoreSlot(t, store, "slot2", "d1", 2)
	seedStoreSession(t, store, "s1", "d1", "h1", "slot1")
	moving := seedStoreSession(t, store, "s2", "d1", "h1", "slot2")

	moving.TimeSlotID = "slot1"
	if err := store.UpdateSession(ctx, moving); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate when moving into an occupied cell, got %v", err)
	}

	// Rewriting a session in place keeps its own cell available to it.
	moving.TimeSlotID = "slot2"
	moving.Title = "Renamed"
	if err := store.UpdateSession(ctx, moving); err != nil {
		t.Fatalf("UpdateSession in place failed: %v", err)
	}
}

func TestSessionRepository_ReassignSessions(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)
	seedStoreSlot(t, store, "slot2", "d1", 2)
	seedStoreSession(t, store, "s1", "d1", "h1", "slot1")
	seedStoreSession(t, store, "s2", "d1", "h2", "slot2")

	moved, err := store.ReassignSessions(ctx, "h2", "h1")
	if err != nil {
		t.Fatalf("ReassignSessions failed: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected 1 session moved, got %d", moved)
	}
	occupant, err := store.FindByPlacement(ctx, "d1", "h1", "slot2")
	if err != nil {
		t.Fatalf("FindByPlacement after move failed: %v", err)
	}
	if occupant.ID != "s2" {
		t.Errorf("expected s2 on the surviving hall, got %q", occupant.ID)
	}
}

func TestSessionRepository_ReassignSessionsRejectsCollision(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)
	seedStoreSlot(t, store, "slot2", "d1", 2)
	seedStoreSession(t, store, "s1", "d1", "h1", "slot1")
	seedStoreSession(t, store, "s2", "d1", "h2", "slot1")
	seedStoreSession(t, store, "s3", "d1", "h2", "slot2")

	moved, err := store.ReassignSessions(ctx, "h2", "h1")
	if !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for a colliding move, got %v", err)
	}
	if moved != 0 {
		t.Fatalf("expected no sessions moved, got %d", moved)
	}

	// Nothing moved, including the session with a free destination cell.
	for _, id := range []string{"s2", "s3"} {
		session, err := store.GetSession(ctx, id)
		if err != nil {
			t.Fatalf("GetSession %s failed: %v", id, err)
		}
		if session.StageID != "h2" {
			t.Errorf("expected %s to stay on h2, got %q", id, session.StageID)
		}
	}
}

func TestHallRepository_DayAssignment(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	for _, hall := range []persistence.Hall{
		{ID: "h1", Name: "Main Hall", CreatedAt: repoTestTime, UpdatedAt: repoTestTime},
		{ID: "h2", Name: "Room A", CreatedAt: repoTestTime, UpdatedAt: repoTestTime},
	} {
		if err := store.CreateHall(ctx, hall); err != nil {
			t.Fatalf("CreateHall failed: %v", err)
		}
	}

	if err := store.AssignHallToDay(ctx, persistence.DayHall{DayID: "d1", HallID: "h2", Position: 1}); err != nil {
		t.Fatalf("AssignHallToDay failed: %v", err)
	}
	if err := store.AssignHallToDay(ctx, persistence.DayHall{DayID: "d1", HallID: "h1", Position: 2}); err != nil {
		t.Fatalf("AssignHallToDay failed: %v", err)
	}

	memberships, err := store.ListDayHalls(ctx, "d1")
	if err != nil {
		t.Fatalf("ListDayHalls failed: %v", err)
	}
	if len(memberships) != 2 || memberships[0].HallID != "h2" || memberships[1].HallID != "h1" {
		t.Fatalf("expected position ordering h2,h1, got %+v", memberships)
	}

	if err := store.RemoveHallFromDay(ctx, "d1", "h2"); err != nil {
		t.Fatalf("RemoveHallFromDay failed: %v", err)
	}
	if err := store.RemoveHallFromDay(ctx, "d1", "h2"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated removal, got %v", err)
	}
}

func TestSessionRepository_Participants(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	seedStoreDay(t, store, "d1")
	seedStoreSlot(t, store, "slot1", "d1", 1)
	seedStoreSession(t, store, "s1", "d1", "h1", "slot1")

	participants := []persistence.SessionParticipant{
		{ID: "p1", SessionID: "s1", PersonID: "per1", Role: "speaker"},
		{ID: "p2", SessionID: "s1", PersonID: "per2", Role: "moderator"},
	}
	if err := store.ReplaceParticipants(ctx, "s1", participants); err != nil {
		t.Fatalf("ReplaceParticipants failed: %v", err)
	}

	stored, err := store.ListParticipants(ctx, "s1")
	if err != nil {
		t.Fatalf("ListParticipants failed: %v", err)
	}
	if len(stored) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(stored))
	}

	if err := store.ReplaceParticipants(ctx, "s1", participants[:1]); err != nil {
		t.Fatalf("ReplaceParticipants swap failed: %v", err)
	}
	stored, err = store.ListParticipants(ctx, "s1")
	if err != nil {
		t.Fatalf("ListParticipants after swap failed: %v", err)
	}
	if len(stored) != 1 || stored[0].PersonID != "per1" {
		t.Fatalf("expected only per1 to remain, got %+v", stored)
	}

	if err := store.ReplaceParticipants(ctx, "s1", nil); err != nil {
		t.Fatalf("ReplaceParticipants clear failed: %v", err)
	}
	stored, err = store.ListParticipants(ctx, "s1")
	if err != nil {
		t.Fatalf("ListParticipants after clear failed: %v", err)
	}
	if len(stored) != 0 {
		t.Fatalf("expected no participants after clear, got %+v", stored)
	}
}

func TestAccountRepository_AuthSessions(t *testing.T) {
	store, cleanup := setupStoreTest(t)
	defer cleanup()

	ctx := context.Background()
	creds := persistence.AccountCredentials{
		Account: persistence.Account{
			ID:          "acct1",
			Email:       "editor@example.com",
			DisplayName: "Editor",
			CreatedAt:   repoTestTime,
			UpdatedAt:   repoTestTime,
		},
		PasswordHash: "hash",
	}
	if err := store.CreateAccount(ctx, creds); err != nil {
		t.Fatalf("CreateAccount failed: %v", err)
	}
	if err := store.CreateAccount(ctx, creds); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for repeated email, got %v", err)
	}

	session := persistence.AuthSession{
		ID:        "auth1",
		AccountID: "acct1",
		Token:     "token-1",
		ExpiresAt: repoTestTime.Add(time.Hour),
		CreatedAt: repoTestTime,
		UpdatedAt: repoTestTime,
	}
	if _, err := store.CreateAuthSession(ctx, session); err != nil {
		t.Fatalf("CreateAuthSession failed: %v", err)
	}

	revoked, err := store.RevokeAuthSession(ctx, "token-1", repoTestTime.Add(time.Minute))
	if err != nil {
		t.Fatalf("RevokeAuthSession failed: %v", err)
	}
	if revoked.RevokedAt == nil {
		t.Fatal("expected a revocation timestamp")
	}
	if _, err := store.RevokeAuthSession(ctx, "token-1", repoTestTime.Add(2*time.Minute)); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for repeated revocation, got %v", err)
	}
}
