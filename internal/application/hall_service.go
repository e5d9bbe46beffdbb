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

// HallService manages the global hall registry. Deleting a hall is guarded:
// sessions referencing it must first migrate to a surviving hall.
type HallService struct {
	halls       persistence.HallRepository
	sessions    persistence.SessionRepository
	publisher   EventPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewHallService constructs a hall service with the provided dependencies.
func NewHallService(halls persistence.HallRepository, sessions persistence.SessionRepository, publisher EventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *HallService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &HallService{
		halls:       halls,
		sessions:    sessions,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *HallService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "HallService", operation, attrs...)
}

// CreateHall validates input and persists a new hall.
func (s *HallService) CreateHall(ctx context.Context, params CreateHallParams) (hall persistence.Hall, err error) {
	if s == nil {
		err = fmt.Errorf("HallService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateHall", "principal_id", params.Principal.AccountID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("hall_id", hall.ID).InfoContext(ctx, "hall created")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	vErr := validateHallInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	now := s.now()
	hall = persistence.Hall{
		ID:        s.idGenerator(),
		Name:      strings.TrimSpace(params.Input.Name),
		Capacity:  params.Input.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err = s.halls.CreateHall(ctx, hall); err != nil {
		err = mapRepoError(err)
		return
	}

	publishChange(s.publisher, realtime.KindHalls, realtime.EventInsert, hall.ID, nil, hall)
	return
}

// UpdateHall validates input and updates an existing hall.
func (s *HallService) UpdateHall(ctx context.Context, params UpdateHallParams) (hall persistence.Hall, err error) {
	if s == nil {
		err = fmt.Errorf("HallService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateHall",
		"principal_id", params.Principal.AccountID,
		"hall_id", params.HallID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall updated")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Hall
	existing, err = s.halls.GetHall(ctx, params.HallID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	vErr := validateHallInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	hall = existing
	hall.Name = strings.TrimSpace(params.Input.Name)
	hall.Capacity = params.Input.Capacity
	hall.UpdatedAt = s.now()

	if err = s.halls.UpdateHall(ctx, hall); err != nil {
		err = mapRepoError(err)
		return
	}

	publishChange(s.publisher, realtime.KindHalls, realtime.EventUpdate, hall.ID, existing, hall)
	return
}

// GetHall retrieves a hall by ID.
func (s *HallService) GetHall(ctx context.Context, id string) (persistence.Hall, error) {
	if s == nil {
		return persistence.Hall{}, fmt.Errorf("HallService is nil")
	}
	hall, err := s.halls.GetHall(ctx, id)
	if err != nil {
		return persistence.Hall{}, mapRepoError(err)
	}
	return hall, nil
}

// ListHalls returns the full hall registry.
func (s *HallService) ListHalls(ctx context.Context) ([]persistence.Hall, error) {
	if s == nil {
		return nil, fmt.Errorf("HallService is nil")
	}
	halls, err := s.halls.ListHalls(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return halls, nil
}

// DeleteHall retires a hall. Administrators only. When sessions still
// reference the hall, MigrateToID must name a different existing hall; those
// sessions move there before the hall is removed.
func (s *HallService) DeleteHall(ctx context.Context, params DeleteHallParams) (err error) {
	if s == nil {
		return fmt.Errorf("HallService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteHall",
		"principal_id", params.Principal.AccountID,
		"hall_id", params.HallID,
		"migrate_to", params.MigrateToID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete hall", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "hall deleted")
	}()

	if !params.Principal.IsAdmin {
		return ErrUnauthorized
	}

	var existing persistence.Hall
	existing, err = s.halls.GetHall(ctx, params.HallID)
	if err != nil {
		return mapRepoError(err)
	}

	var stranded []persistence.Session
	stranded, err = s.sessions.ListSessions(ctx, persistence.SessionFilter{StageID: params.HallID})
	if err != nil {
		return mapRepoError(err)
	}

	if len(stranded) > 0 {
		if params.MigrateToID == "" || params.MigrateToID == params.HallID {
			return ErrHallInUse
		}
		if _, err = s.halls.GetHall(ctx, params.MigrateToID); err != nil {
			return mapRepoError(err)
		}
		if err = s.checkMigrationTarget(ctx, stranded, params.MigrateToID); err != nil {
			return err
		}
		var moved int
		moved, err = s.sessions.ReassignSessions(ctx, params.HallID, params.MigrateToID)
		if err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				// A session landed on the target hall between the check and
				// the move.
				return &PlacementConflictError{StageID: params.MigrateToID}
			}
			return mapRepoError(err)
		}
		logger.InfoContext(ctx, "sessions migrated before hall removal", "moved", moved)
	}

	if err = s.halls.DeleteHall(ctx, params.HallID); err != nil {
		return mapRepoError(err)
	}

	publishChange(s.publisher, realtime.KindHalls, realtime.EventDelete, params.HallID, existing, nil)
	return nil
}

// checkMigrationTarget rejects a migration that would drop two sessions into
// the same grid cell, naming the session already holding it.
func (s *HallService) checkMigrationTarget(ctx context.Context, stranded []persistence.Session, targetID string) error {
	occupied, err := s.sessions.ListSessions(ctx, persistence.SessionFilter{StageID: targetID})
	if err != nil {
		return mapRepoError(err)
	}

	type cell struct{ dayID, timeSlotID string }
	taken := make(map[cell]string, len(occupied))
	for _, session := range occupied {
		taken[cell{dayID: session.DayID, timeSlotID: session.TimeSlotID}] = session.ID
	}
	for _, session := range stranded {
		if existingID, ok := taken[cell{dayID: session.DayID, timeSlotID: session.TimeSlotID}]; ok {
			return &PlacementConflictError{
				DayID:      session.DayID,
				StageID:    targetID,
				TimeSlotID: session.TimeSlotID,
				ExistingID: existingID,
			}
		}
	}
	return nil
}

func validateHallInput(input HallInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if input.Capacity != nil && *input.Capacity <= 0 {
		vErr.add("capacity", "capacity must be positive")
	}
	return vErr
}
