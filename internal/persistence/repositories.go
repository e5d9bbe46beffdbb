package persistence

import (
	"context"
	"time"
)

// DayRepository exposes CRUD operations for conference days.
type DayRepository interface {
	CreateDay(ctx context.Context, day ConferenceDay) error
	UpdateDay(ctx context.Context, day ConferenceDay) error
	GetDay(ctx context.Context, id string) (ConferenceDay, error)
	ListDays(ctx context.Context) ([]ConferenceDay, error)
	DeleteDay(ctx context.Context, id string) error
}

// HallRepository exposes CRUD operations for halls and their per-day
// membership.
type HallRepository interface {
	CreateHall(ctx context.Context, hall Hall) error
	UpdateHall(ctx context.Context, hall Hall) error
	GetHall(ctx context.Context, id string) (Hall, error)
	ListHalls(ctx context.Context) ([]Hall, error)
	DeleteHall(ctx context.Context, id string) error

	AssignHallToDay(ctx context.Context, assignment DayHall) error
	RemoveHallFromDay(ctx context.Context, dayID, hallID string) error
	ListDayHalls(ctx context.Context, dayID string) ([]DayHall, error)
}

// TimeSlotRepository stores the ordered slot partition of each day.
// CreateSlots must insert atomically under a uniqueness constraint on
// (day_id, slot_order) so concurrent provisioners lose cleanly with
// ErrDuplicate.
type TimeSlotRepository interface {
	CreateSlots(ctx context.Context, slots []TimeSlot) error
	UpdateSlot(ctx context.Context, slot TimeSlot) error
	ListSlots(ctx context.Context, dayID string) ([]TimeSlot, error)
	DeleteSlot(ctx context.Context, id string) error
}

// SessionFilter narrows session queries.
type SessionFilter struct {
	DayID      string
	StageID    string
	TimeSlotID string
}

// SessionRepository stores sessions and their participant records.
type SessionRepository interface {
	CreateSession(ctx context.Context, session Session) error
	UpdateSession(ctx context.Context, session Session) error
	GetSession(ctx context.Context, id string) (Session, error)
	ListSessions(ctx context.Context, filter SessionFilter) ([]Session, error)
	DeleteSession(ctx context.Context, id string) error
	// FindByPlacement returns the session occupying a grid cell, or
	// ErrNotFound when the cell is empty.
	FindByPlacement(ctx context.Context, dayID, stageID, timeSlotID string) (Session, error)
	// ReassignSessions moves every session on fromHallID to toHallID.
	ReassignSessions(ctx context.Context, fromHallID, toHallID string) (int, error)

	ReplaceParticipants(ctx context.Context, sessionID string, participants []SessionParticipant) error
	ListParticipants(ctx context.Context, sessionID string) ([]SessionParticipant, error)
}

// PersonRepository exposes CRUD operations for speaker records.
type PersonRepository interface {
	CreatePerson(ctx context.Context, person Person) error
	UpdatePerson(ctx context.Context, person Person) error
	GetPerson(ctx context.Context, id string) (Person, error)
	ListPersons(ctx context.Context) ([]Person, error)
	DeletePerson(ctx context.Context, id string) error
}

// AccountRepository exposes editor account lookup for authentication.
type AccountRepository interface {
	CreateAccount(ctx context.Context, creds AccountCredentials) error
	GetAccount(ctx context.Context, id string) (Account, error)
	GetAccountCredentialsByEmail(ctx context.Context, email string) (AccountCredentials, error)
}

// AuthSessionRepository stores issued authentication tokens.
type AuthSessionRepository interface {
	CreateAuthSession(ctx context.Context, session AuthSession) (AuthSession, error)
	GetAuthSession(ctx context.Context, token string) (AuthSession, error)
	RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (AuthSession, error)
	DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error
}
