package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/program"
	"github.com/example/conference-program/internal/realtime"
	"github.com/example/conference-program/internal/sessiontype"
)

// SessionService orchestrates validation, placement checks, and persistence
// for program sessions. Every write re-checks the target grid cell: a second
// session can never land on an occupied (day, stage, slot) triple.
type SessionService struct {
	sessions    persistence.SessionRepository
	persons     persistence.PersonRepository
	publisher   EventPublisher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService constructs a session service with the provided dependencies.
func NewSessionService(sessions persistence.SessionRepository, persons persistence.PersonRepository, publisher EventPublisher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		sessions:    sessions,
		persons:     persons,
		publisher:   publisher,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// CreateSession validates the input against the session type registry, checks
// the target cell, and persists the session with its participants.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (session persistence.Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession",
		"principal_id", params.Principal.AccountID,
		"session_type", params.Input.SessionType,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session created")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	if err = s.validateInput(params.Input); err != nil {
		return
	}

	if err = s.checkPlacement(ctx, params.Input, ""); err != nil {
		return
	}

	now := s.now()
	session = persistence.Session{
		ID:               s.idGenerator(),
		Title:            strings.TrimSpace(params.Input.Title),
		SessionType:      params.Input.SessionType,
		DayID:            params.Input.DayID,
		StageID:          params.Input.StageID,
		TimeSlotID:       params.Input.TimeSlotID,
		Topic:            params.Input.Topic,
		Description:      params.Input.Description,
		IsParallelMeal:   params.Input.IsParallelMeal,
		ParallelMealType: params.Input.ParallelMealType,
		Extra:            params.Input.Extra,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err = s.sessions.CreateSession(ctx, session); err != nil {
		err = s.mapWriteError(ctx, err, params.Input)
		return
	}

	if err = s.storeParticipants(ctx, session.ID, params.Input.Participants); err != nil {
		return
	}

	publishChange(s.publisher, realtime.KindSessions, realtime.EventInsert, session.ID, nil, session)
	return
}

// UpdateSession validates and rewrites an existing session. Moving the
// session to a different cell is allowed only when that cell is free.
func (s *SessionService) UpdateSession(ctx context.Context, params UpdateSessionParams) (session persistence.Session, err error) {
	if s == nil {
		err = fmt.Errorf("SessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "UpdateSession",
		"principal_id", params.Principal.AccountID,
		"session_id", params.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated")
	}()

	if params.Principal.AccountID == "" {
		err = ErrUnauthorized
		return
	}

	var existing persistence.Session
	existing, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if err = s.validateInput(params.Input); err != nil {
		return
	}

	if err = s.checkPlacement(ctx, params.Input, params.SessionID); err != nil {
		return
	}

	session = existing
	session.Title = strings.TrimSpace(params.Input.Title)
	session.SessionType = params.Input.SessionType
	session.DayID = params.Input.DayID
	session.StageID = params.Input.StageID
	session.TimeSlotID = params.Input.TimeSlotID
	session.Topic = params.Input.Topic
	session.Description = params.Input.Description
	session.IsParallelMeal = params.Input.IsParallelMeal
	session.ParallelMealType = params.Input.ParallelMealType
	session.Extra = params.Input.Extra
	session.UpdatedAt = s.now()

	if err = s.sessions.UpdateSession(ctx, session); err != nil {
		err = s.mapWriteError(ctx, err, params.Input)
		return
	}

	if err = s.storeParticipants(ctx, session.ID, params.Input.Participants); err != nil {
		return
	}

	publishChange(s.publisher, realtime.KindSessions, realtime.EventUpdate, session.ID, existing, session)
	return
}

// GetSession retrieves a session with its participant records.
func (s *SessionService) GetSession(ctx context.Context, id string) (SessionDetail, error) {
	if s == nil {
		return SessionDetail{}, fmt.Errorf("SessionService is nil")
	}

	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return SessionDetail{}, mapRepoError(err)
	}
	participants, err := s.sessions.ListParticipants(ctx, id)
	if err != nil {
		return SessionDetail{}, mapRepoError(err)
	}
	roles, err := s.resolveRoles(ctx, participants)
	if err != nil {
		return SessionDetail{}, err
	}
	return SessionDetail{Session: session, Participants: participants, Roles: roles}, nil
}

// ListSessions returns sessions matching the filter.
func (s *SessionService) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("SessionService is nil")
	}
	sessions, err := s.sessions.ListSessions(ctx, filter)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return sessions, nil
}

// DeleteSession removes a session and its participant records.
func (s *SessionService) DeleteSession(ctx context.Context, principal Principal, id string) (err error) {
	if s == nil {
		return fmt.Errorf("SessionService is nil")
	}

	logger := s.loggerWith(ctx, "DeleteSession",
		"principal_id", principal.AccountID,
		"session_id", id,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session deleted")
	}()

	if principal.AccountID == "" {
		return ErrUnauthorized
	}

	var existing persistence.Session
	existing, err = s.sessions.GetSession(ctx, id)
	if err != nil {
		return mapRepoError(err)
	}

	if err = s.sessions.DeleteSession(ctx, id); err != nil {
		return mapRepoError(err)
	}

	publishChange(s.publisher, realtime.KindSessions, realtime.EventDelete, id, existing, nil)
	return nil
}

func (s *SessionService) validateInput(input SessionInput) error {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.DayID == "" {
		vErr.add("day_id", "day is required")
	}
	if input.StageID == "" {
		vErr.add("stage_id", "stage is required")
	}
	if input.TimeSlotID == "" {
		vErr.add("time_slot_id", "time slot is required")
	}

	fields := make(map[string]string, len(input.Extra)+3)
	for k, v := range input.Extra {
		fields[k] = v
	}
	fields["title"] = input.Title
	if input.Topic != nil {
		fields["topic"] = *input.Topic
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}

	missing, err := sessiontype.MissingFields(input.SessionType, fields)
	if err != nil {
		var unknown *sessiontype.UnknownTypeError
		if errors.As(err, &unknown) {
			vErr.add("session_type", fmt.Sprintf("unknown session type %q", unknown.Tag))
			return vErr
		}
		return err
	}
	for _, field := range missing {
		vErr.add(field, "field is required for this session type")
	}

	for i, p := range input.Participants {
		if p.PersonID == "" {
			vErr.add(fmt.Sprintf("participants[%d].person_id", i), "person is required")
			continue
		}
		allowed, roleErr := sessiontype.RoleAllowed(input.SessionType, p.Role)
		if roleErr != nil {
			continue
		}
		if !allowed {
			vErr.add(fmt.Sprintf("participants[%d].role", i),
				fmt.Sprintf("role %q is not allowed for type %q", p.Role, input.SessionType))
		}
	}

	if vErr.HasErrors() {
		return vErr
	}
	return nil
}

// checkPlacement rejects writes targeting an occupied cell. excludeID skips
// the session being updated so it can stay in its own cell.
func (s *SessionService) checkPlacement(ctx context.Context, input SessionInput, excludeID string) error {
	occupant, err := s.sessions.FindByPlacement(ctx, input.DayID, input.StageID, input.TimeSlotID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return nil
		}
		return mapRepoError(err)
	}
	if occupant.ID == excludeID {
		return nil
	}
	return &PlacementConflictError{
		DayID:      input.DayID,
		StageID:    input.StageID,
		TimeSlotID: input.TimeSlotID,
		ExistingID: occupant.ID,
	}
}

// mapWriteError converts a uniqueness violation raised by the storage layer
// into a placement conflict. The constraint is the backstop for two editors
// racing past checkPlacement.
func (s *SessionService) mapWriteError(ctx context.Context, err error, input SessionInput) error {
	if !errors.Is(err, persistence.ErrDuplicate) {
		return mapRepoError(err)
	}
	occupant, findErr := s.sessions.FindByPlacement(ctx, input.DayID, input.StageID, input.TimeSlotID)
	if findErr != nil {
		return mapRepoError(err)
	}
	return &PlacementConflictError{
		DayID:      input.DayID,
		StageID:    input.StageID,
		TimeSlotID: input.TimeSlotID,
		ExistingID: occupant.ID,
	}
}

func (s *SessionService) storeParticipants(ctx context.Context, sessionID string, inputs []ParticipantInput) error {
	participants := make([]persistence.SessionParticipant, 0, len(inputs))
	for _, input := range inputs {
		participants = append(participants, persistence.SessionParticipant{
			ID:        s.idGenerator(),
			SessionID: sessionID,
			PersonID:  input.PersonID,
			Role:      input.Role,
		})
	}
	if err := s.sessions.ReplaceParticipants(ctx, sessionID, participants); err != nil {
		return mapRepoError(err)
	}
	return nil
}

func (s *SessionService) resolveRoles(ctx context.Context, participants []persistence.SessionParticipant) (roles program.RoleBuckets, err error) {
	persons, err := s.personIndex(ctx)
	if err != nil {
		return program.RoleBuckets{}, err
	}
	return program.ResolveRoles(participants, persons), nil
}

func (s *SessionService) personIndex(ctx context.Context) (map[string]persistence.Person, error) {
	listed, err := s.persons.ListPersons(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	index := make(map[string]persistence.Person, len(listed))
	for _, person := range listed {
		index[person.ID] = person
	}
	return index, nil
}
