package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/realtime"
)

// DefaultSlotCount is the number of half-hour slots provisioned for a new
// day, covering 08:00 through 20:30.
const DefaultSlotCount = 25

const slotMinutes = 30

// SlotService provisions and edits the time slot partition of a day.
type SlotService struct {
	slots       persistence.TimeSlotRepository
	days        persistence.DayRepository
	publisher   EventPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSlotService constructs a slot service with the provided dependencies.
func NewSlotService(slots persistence.TimeSlotRepository, days persistence.DayRepository, publisher EventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SlotService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SlotService{
		slots:       slots,
		days:        days,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SlotService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SlotService", operation, attrs...)
}

// EnsureSlots provisions the default half-hour partition for a day. The
// operation is idempotent: a day that already has slots keeps them, and
// losing a provisioning race to another editor is resolved by re-reading the
// winner's slots.
func (s *SlotService) EnsureSlots(ctx context.Context, params EnsureSlotsParams) (slots []persistence.TimeSlot, err error) {
	if s == nil {
		err = fmt.Errorf("SlotService is nil")
		return
	}

	logger := s.loggerWith(ctx, "EnsureSlots",
		"principal_id", params.Principal.AccountID,
		"day_id", params.DayID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to ensure slots", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("slot_count", len(slots)).InfoContext(ctx, "slots ensured")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	if _, err = s.days.GetDay(ctx, params.DayID); err != nil {
		err = mapRepoError(err)
		return
	}

	slots, err = s.slots.ListSlots(ctx, params.DayID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if len(slots) > 0 {
		return
	}

	created := s.defaultSlots(params.DayID)
	if err = s.slots.CreateSlots(ctx, created); err != nil {
		if errors.Is(err, persistence.ErrDuplicate) {
			// Another editor won the provisioning race. Their partition is
			// equivalent, so adopt it.
			logger.WarnContext(ctx, "lost slot provisioning race, re-reading")
			slots, err = s.slots.ListSlots(ctx, params.DayID)
			if err != nil {
				err = mapRepoError(err)
			}
			return
		}
		err = mapRepoError(err)
		return
	}

	slots = created
	publishChange(s.publisher, realtime.KindTimeSlots, realtime.EventInsert, params.DayID, nil, slots)
	return
}

func (s *SlotService) defaultSlots(dayID string) []persistence.TimeSlot {
	now := s.now()
	slots := make([]persistence.TimeSlot, 0, DefaultSlotCount)
	for i := 1; i <= DefaultSlotCount; i++ {
		startMinutes := 8*60 + (i-1)*slotMinutes
		slots = append(slots, persistence.TimeSlot{
			ID:        s.idGenerator(),
			DayID:     dayID,
			Start:     formatClock(startMinutes),
			End:       formatClock(startMinutes + slotMinutes),
			SlotOrder: i,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return slots
}

func formatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// UpdateSlot edits a slot's interval or marks it as a break row.
func (s *SlotService) UpdateSlot(ctx context.Context, params UpdateSlotParams) (slot persistence.TimeSlot, err error) {
	if s == nil {
		err = fmt.Errorf("SlotService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSlot",
		"principal_id", params.Principal.AccountID,
		"slot_id", params.SlotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot updated")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateSlotInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	slot = persistence.TimeSlot{
		ID:         params.SlotID,
		Start:      params.Input.Start,
		End:        params.Input.End,
		IsBreak:    params.Input.IsBreak,
		BreakTitle: params.Input.BreakTitle,
		UpdatedAt:  s.now(),
	}
	if slot.IsBreak && (slot.BreakTitle == nil || strings.TrimSpace(*slot.BreakTitle) == "") {
		slot.BreakTitle = nil
	}

	if err = s.slots.UpdateSlot(ctx, slot); err != nil {
		err = mapRepoError(err)
		return
	}

	publishChange(s.publisher, realtime.KindTimeSlots, realtime.EventUpdate, slot.ID, nil, slot)
	return
}

// ListSlots returns a day's ordered slot partition.
func (s *SlotService) ListSlots(ctx context.Context, dayID string) ([]persistence.TimeSlot, error) {
	if s == nil {
		return nil, fmt.Errorf("SlotService is nil")
	}
	slots, err := s.slots.ListSlots(ctx, dayID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return slots, nil
}

// DeleteSlot removes a slot from the partition.
func (s *SlotService) DeleteSlot(ctx context.Context, principal Principal, slotID string) (err error) {
	if s == nil {
		return fmt.Errorf("SlotService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSlot",
		"principal_id", principal.AccountID,
		"slot_id", slotID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot deleted")
	}()

	if principal.AccountID == "" {
		return ErrUnauthorized
	}

	if err = s.slots.DeleteSlot(ctx, slotID); err != nil {
		return mapRepoError(err)
	}

	publishChange(s.publisher, realtime.KindTimeSlots, realtime.EventDelete, slotID, nil, nil)
	return nil
}

func validateSlotInput(input SlotInput) *ValidationError {
	vErr := &ValidationError{}
	if !validClock(input.Start) {
		vErr.add("start", "start must be HH:MM")
	}
	if !validClock(input.End) {
		vErr.add("end", "end must be HH:MM")
	}
	if validClock(input.Start) && validClock(input.End) && input.Start >= input.End {
		vErr.add("end", "end must be after start")
	}
	return vErr
}

func validClock(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
