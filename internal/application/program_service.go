package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/program"
)

// ProgramService assembles the read-side schedule grid for one day. The day
// itself must exist; failed reads of the supporting collections degrade to
// empty inputs so a partially loaded program still renders.
type ProgramService struct {
	days     persistence.DayRepository
	halls    persistence.HallRepository
	slots    persistence.TimeSlotRepository
	sessions persistence.SessionRepository
	persons  persistence.PersonRepository
	logger   *slog.Logger
}

// NewProgramService constructs a program service with the provided dependencies.
func NewProgramService(days persistence.DayRepository, halls persistence.HallRepository, slots persistence.TimeSlotRepository, sessions persistence.SessionRepository, persons persistence.PersonRepository, logger *slog.Logger) *ProgramService {
	return &ProgramService{
		days:     days,
		halls:    halls,
		slots:    slots,
		sessions: sessions,
		persons:  persons,
		logger:   defaultLogger(logger),
	}
}

func (s *ProgramService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ProgramService", operation, attrs...)
}

// GetDayProgram loads every collection feeding the grid and assembles it.
func (s *ProgramService) GetDayProgram(ctx context.Context, dayID string) (view ProgramView, err error) {
	if s == nil {
		err = fmt.Errorf("ProgramService is nil")
		return
	}

	logger := s.loggerWith(ctx, "GetDayProgram", "day_id", dayID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to assemble program", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("rows", len(view.Grid.Rows), "halls", len(view.Grid.Halls)).
			DebugContext(ctx, "program assembled")
	}()

	day, err := s.days.GetDay(ctx, dayID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	halls, hallErr := s.halls.ListHalls(ctx)
	if hallErr != nil {
		logger.WarnContext(ctx, "hall registry unavailable, rendering without columns", "error", hallErr)
		halls = nil
	}
	memberships, memberErr := s.halls.ListDayHalls(ctx, dayID)
	if memberErr != nil {
		logger.WarnContext(ctx, "day hall line-up unavailable", "error", memberErr)
		memberships = nil
	}
	slots, slotErr := s.slots.ListSlots(ctx, dayID)
	if slotErr != nil {
		logger.WarnContext(ctx, "slot partition unavailable", "error", slotErr)
		slots = nil
	}
	sessions, sessionErr := s.sessions.ListSessions(ctx, persistence.SessionFilter{DayID: dayID})
	if sessionErr != nil {
		logger.WarnContext(ctx, "session list unavailable", "error", sessionErr)
		sessions = nil
	}

	view.Grid = program.BuildGrid(day, halls, memberships, slots, sessions)
	view.Roles = s.resolveSessionRoles(ctx, logger, sessions)
	return
}

func (s *ProgramService) resolveSessionRoles(ctx context.Context, logger *slog.Logger, sessions []persistence.Session) map[string]program.RoleBuckets {
	roles := make(map[string]program.RoleBuckets, len(sessions))
	if len(sessions) == 0 {
		return roles
	}

	listed, err := s.persons.ListPersons(ctx)
	if err != nil {
		logger.WarnContext(ctx, "person registry unavailable, using placeholders", "error", err)
	}
	index := make(map[string]persistence.Person, len(listed))
	for _, person := range listed {
		index[person.ID] = person
	}

	for _, session := range sessions {
		participants, pErr := s.sessions.ListParticipants(ctx, session.ID)
		if pErr != nil {
			logger.WarnContext(ctx, "participants unavailable", "session_id", session.ID, "error", pErr)
			continue
		}
		roles[session.ID] = program.ResolveRoles(participants, index)
	}
	return roles
}
