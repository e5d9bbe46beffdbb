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

// DayService orchestrates validation, authorization, and persistence for
// conference days and their hall line-up.
type DayService struct {
	days        persistence.DayRepository
	halls       persistence.HallRepository
	publisher   EventPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewDayService constructs a day service with the provided dependencies.
func NewDayService(days persistence.DayRepository, halls persistence.HallRepository, publisher EventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *DayService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &DayService{
		days:        days,
		halls:       halls,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *DayService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "DayService", operation, attrs...)
}

// CreateDay validates input and persists a new conference day.
func (s *DayService) CreateDay(ctx context.Context, params CreateDayParams) (day persistence.ConferenceDay, err error) {
	if s == nil {
		err = fmt.Errorf("DayService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateDay", "principal_id", params.Principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create day", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("day_id", day.ID).InfoContext(ctx, "day created")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateDayInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	day = persistence.ConferenceDay{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Input.Name),
		Date:      params.Input.Date,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.days.CreateDay(ctx, day); err != nil {
		err = mapRepoError(err)
		return
	}

	publishChange(s.publisher, realtime.KindDays, realtime.EventInsert, day.ID, nil, day)
	return
}

// UpdateDay validates input and updates an existing day.
func (s *DayService) UpdateDay(ctx context.Context, params UpdateDayParams) (day persistence.ConferenceDay, err error) {
	if s == nil {
		err = fmt.Errorf("DayService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateDay",
		"principal_id", params.Principal.AccountID,
		"day_id", params.DayID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update day", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "day updated")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.ConferenceDay
	existing, err = s.days.GetDay(ctx, params.DayID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	vErr := validateDayInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	day = existing
	day.Name = strings.TrimSpace(params.Input.Name)
	day.Date = params.Input.Date
	day.UpdatedAt = s.now()

	if err = s.days.UpdateDay(ctx, day); err != nil {
		err = mapRepoError(err)
		return
	}

	publishChange(s.publisher, realtime.KindDays, realtime.EventUpdate, day.ID, existing, day)
	return
}

// GetDay retrieves a day by ID.
func (s *DayService) GetDay(ctx context.Context, id string) (persistence.ConferenceDay, error) {
	if s == nil {
		return persistence.ConferenceDay{}, fmt.Errorf("DayService is nil")
	}
	day, err := s.days.GetDay(ctx, id)
	if err != nil {
		return persistence.ConferenceDay{}, mapRepoError(err)
	}
	return day, nil
}

// ListDays returns all conference days ordered by date.
func (s *DayService) ListDays(ctx context.Context) ([]persistence.ConferenceDay, error) {
	if s == nil {
		return nil, fmt.Errorf("DayService is nil")
	}
	days, err := s.days.ListDays(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return days, nil
}

// DeleteDay removes a day along with its slot partition and hall line-up.
func (s *DayService) DeleteDay(ctx context.Context, principal Principal, dayID string) (err error) {
	if s == nil {
		return fmt.Errorf("DayService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteDay",
		"principal_id", principal.AccountID,
		"day_id", dayID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete day", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "day deleted")
	}()

	if principal.AccountID == "" {
		return ErrUnauthorized
	}

	var existing persistence.ConferenceDay
	existing, err = s.days.GetDay(ctx, dayID)
	if err != nil {
		return mapRepoError(err)
	}

	if err = s.days.DeleteDay(ctx, dayID); err != nil {
		return mapRepoError(err)
	}

	publishChange(s.publisher, realtime.KindDays, realtime.EventDelete, dayID, existing, nil)
	return nil
}

// AssignHall attaches a hall to a day at the given column position.
func (s *DayService) AssignHall(ctx context.Context, params AssignHallParams) (err error) {
	if s == nil {
		return fmt.Errorf("DayService is nil")
	}

	logger := s.loggerWith(ctx, "AssignHall",
		"principal_id", params.Principal.AccountID,
		"day_id", params.DayID,
		"hall_id", params.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assign hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall assigned to day")
	}()

	if params.Principal.AccountID == "" {
		return ErrUnauthorized
	}

	if _, err = s.days.GetDay(ctx, params.DayID); err != nil {
		return mapRepoError(err)
	}
	if _, err = s.halls.GetHall(ctx, params.HallID); err != nil {
		return mapRepoError(err)
	}

	position := params.Position
	if position <= 0 {
		var memberships []persistence.DayHall
		memberships, err = s.halls.ListDayHalls(ctx, params.DayID)
		if err != nil {
			return mapRepoError(err)
		}
		position = 1
		for _, m := range memberships {
			if m.Position >= position {
				position = m.Position + 1
			}
		}
	}

	assignment := persistence.DayHall{DayID: params.DayID, HallID: params.HallID, Position: position}
	if err = s.halls.AssignHallToDay(ctx, assignment); err != nil {
		return mapRepoError(err)
	}

	publishChange(s.publisher, realtime.KindDays, realtime.EventUpdate, params.DayID, nil, assignment)
	return nil
}

// RemoveHall detaches a hall from a day. Sessions placed on the hall keep
// their records; the grid simply stops rendering the column.
func (s *DayService) RemoveHall(ctx context.Context, params RemoveHallParams) (err error) {
	if s == nil {
		return fmt.Errorf("DayService is nil")
	}

	logger := s.loggerWith(ctx, "RemoveHall",
		"principal_id", params.Principal.AccountID,
		"day_id", params.DayID,
		"hall_id", params.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to remove hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall removed from day")
	}()

	if params.Principal.AccountID == "" {
		return ErrUnauthorized
	}

	if err = s.halls.RemoveHallFromDay(ctx, params.DayID, params.HallID); err != nil {
		return mapRepoError(err)
	}

	publishChange(s.publisher, realtime.KindDays, realtime.EventUpdate, params.DayID, nil, nil)
	return nil
}

// ListDayHalls returns the day's hall line-up ordered by column position.
func (s *DayService) ListDayHalls(ctx context.Context, dayID string) ([]persistence.DayHall, error) {
	if s == nil {
		return nil, fmt.Errorf("DayService is nil")
	}
	memberships, err := s.halls.ListDayHalls(ctx, dayID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return memberships, nil
}

func validateDayInput(input DayInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	return vErr
}

// mapRepoError translates persistence sentinels into application sentinels.
func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, persistence.ErrDuplicate):
		return ErrAlreadyExists
	default:
		return err
	}
}
