package application

import (
	"context"
	"errors"
	"testing"

	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/persistence/sqlite"
	"github.com/example/conference-program/internal/testfixtures"
)

func newSlotServiceTest(t *testing.T) (*SlotService, *sqlite.Storage) {
	t.Helper()
	storage, err := sqlite.Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	ids := testfixtures.NewIDGenerator("slot")
	service := NewSlotService(storage, storage, nil, ids.NextFunc(), clock.NowFunc(), nil)
	return service, storage
}

func seedTestDay(t *testing.T, storage *sqlite.Storage) persistence.ConferenceDay {
	t.Helper()
	day := testfixtures.NewDay("")
	if err := storage.CreateDay(context.Background(), day); err != nil {
		t.Fatalf("CreateDay failed: %v", err)
	}
	return day
}

func TestSlotServiceEnsureSlotsProvisionsDefaults(t *testing.T) {
	service, storage := newSlotServiceTest(t)
	ctx := context.Background()
	day := seedTestDay(t, storage)

	slots, err := service.EnsureSlots(ctx, EnsureSlotsParams{Principal: editor(), DayID: day.ID})
	if err != nil {
		t.Fatalf("EnsureSlots failed: %v", err)
	}
	if len(slots) != DefaultSlotCount {
		t.Fatalf("expected %d slots, got %d", DefaultSlotCount, len(slots))
	}

	if slots[0].Start != "08:00" || slots[0].End != "08:30" {
		t.Errorf("first slot %s-%s, want 08:00-08:30", slots[0].Start, slots[0].End)
	}
	last := slots[len(slots)-1]
	if last.Start != "20:00" || last.End != "20:30" {
		t.Errorf("last slot %s-%s, want 20:00-20:30", last.Start, last.End)
	}
	for i, slot := range slots {
		if slot.SlotOrder != i+1 {
			t.Fatalf("slot %d has order %d", i, slot.SlotOrder)
		}
	}
}

func TestSlotServiceEnsureSlotsIsIdempotent(t *testing.T) {
	service, storage := newSlotServiceTest(t)
	ctx := context.Background()
	day := seedTestDay(t, storage)

	first, err := service.EnsureSlots(ctx, EnsureSlotsParams{Principal: editor(), DayID: day.ID})
	if err != nil {
		t.Fatalf("EnsureSlots failed: %v", err)
	}
	second, err := service.EnsureSlots(ctx, EnsureSlotsParams{Principal: editor(), DayID: day.ID})
	if err != nil {
		t.Fatalf("second EnsureSlots failed: %v", err)
	}
	if len(second) != len(first) {
		t.Fatalf("expected %d slots on repeat, got %d", len(first), len(second))
	}
	if second[0].ID != first[0].ID {
		t.Errorf("repeat call replaced existing slots")
	}
}

func TestSlotServiceEnsureSlotsUnknownDay(t *testing.T) {
	service, _ := newSlotServiceTest(t)

	_, err := service.EnsureSlots(context.Background(), EnsureSlotsParams{Principal: editor(), DayID: "missing"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// racingSlotRepository simulates losing the provisioning race: the first
// CreateSlots call fails with ErrDuplicate after the rival's slots appear.
type racingSlotRepository struct {
	persistence.TimeSlotRepository
	storage *sqlite.Storage
	rival   []persistence.TimeSlot
	raced   bool
}

func (r *racingSlotRepository) CreateSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	if !r.raced {
		r.raced = true
		if err := r.storage.CreateSlots(ctx, r.rival); err != nil {
			return err
		}
		return persistence.ErrDuplicate
	}
	return r.TimeSlotRepository.CreateSlots(ctx, slots)
}

func TestSlotServiceEnsureSlotsLosesRaceCleanly(t *testing.T) {
	storage, err := sqlite.Open("")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	day := testfixtures.NewDay("")
	if err := storage.CreateDay(ctx, day); err != nil {
		t.Fatalf("CreateDay failed: %v", err)
	}

	rival := make([]persistence.TimeSlot, 0, 3)
	for i := 1; i <= 3; i++ {
		rival = append(rival, testfixtures.NewSlot(day.ID, i))
	}
	repo := &racingSlotRepository{TimeSlotRepository: storage, storage: storage, rival: rival}

	clock := testfixtures.NewClock(testfixtures.ReferenceTime())
	ids := testfixtures.NewIDGenerator("slot")
	service := NewSlotService(repo, storage, nil, ids.NextFunc(), clock.NowFunc(), nil)

	slots, err := service.EnsureSlots(ctx, EnsureSlotsParams{Principal: editor(), DayID: day.ID})
	if err != nil {
		t.Fatalf("losing the race must not surface an error, got %v", err)
	}
	if len(slots) != len(rival) {
		t.Fatalf("expected the winner's %d slots, got %d", len(rival), len(slots))
	}
	if slots[0].ID != rival[0].ID {
		t.Errorf("expected the winner's slots to be adopted")
	}
}

func TestSlotServiceUpdateSlotValidatesClock(t *testing.T) {
	service, storage := newSlotServiceTest(t)
	ctx := context.Background()
	day := seedTestDay(t, storage)

	slots, err := service.EnsureSlots(ctx, EnsureSlotsParams{Principal: editor(), DayID: day.ID})
	if err != nil {
		t.Fatalf("EnsureSlots failed: %v", err)
	}

	_, err = service.UpdateSlot(ctx, UpdateSlotParams{
		Principal: editor(),
		SlotID:    slots[0].ID,
		Input:     SlotInput{Start: "9am", End: "09:30"},
	})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}

	_, err = service.UpdateSlot(ctx, UpdateSlotParams{
		Principal: editor(),
		SlotID:    slots[0].ID,
		Input:     SlotInput{Start: "10:00", End: "09:30"},
	})
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError for inverted interval, got %v", err)
	}
}

func TestSlotServiceUpdateSlotMarksBreak(t *testing.T) {
	service, storage := newSlotServiceTest(t)
	ctx := context.Background()
	day := seedTestDay(t, storage)

	slots, err := service.EnsureSlots(ctx, EnsureSlotsParams{Principal: editor(), DayID: day.ID})
	if err != nil {
		t.Fatalf("EnsureSlots failed: %v", err)
	}

	title := "Lunch"
	updated, err := service.UpdateSlot(ctx, UpdateSlotParams{
		Principal: editor(),
		SlotID:    slots[8].ID,
		Input:     SlotInput{Start: slots[8].Start, End: slots[8].End, IsBreak: true, BreakTitle: &title},
	})
	if err != nil {
		t.Fatalf("UpdateSlot failed: %v", err)
	}
	if !updated.IsBreak || updated.BreakTitle == nil || *updated.BreakTitle != "Lunch" {
		t.Errorf("break marking not applied: %+v", updated)
	}

	stored, err := service.ListSlots(ctx, day.ID)
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if !stored[8].IsBreak {
		t.Errorf("break flag not persisted")
	}
}
