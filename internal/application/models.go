package application

import (
	"time"

	"github.com/example/conference-program/internal/persistence"
	"github.com/example/conference-program/internal/program"
)

// Principal represents the authenticated account invoking a service method.
type Principal struct {
	AccountID string
	IsAdmin   bool
}

// DayInput captures caller provided conference day fields.
type DayInput struct {
	Name string
	Date time.Time
}

// CreateDayParams wraps the data required to create a day.
type CreateDayParams struct {
	Principal Principal
	Input     DayInput
}

// UpdateDayParams wraps the data required to update a day.
type UpdateDayParams struct {
	Principal Principal
	DayID     string
	Input     DayInput
}

// AssignHallParams attaches a hall to a day at a column position.
type AssignHallParams struct {
	Principal Principal
	DayID     string
	HallID    string
	Position  int
}

// RemoveHallParams detaches a hall from a day.
type RemoveHallParams struct {
	Principal Principal
	DayID     string
	HallID    string
}

// HallInput captures caller provided hall fields.
type HallInput struct {
	Name     string
	Capacity *int
}

// CreateHallParams wraps the data required to create a hall.
type CreateHallParams struct {
	Principal Principal
	Input     HallInput
}

// UpdateHallParams wraps the data required to update a hall.
type UpdateHallParams struct {
	Principal Principal
	HallID    string
	Input     HallInput
}

// DeleteHallParams retires a hall. MigrateToID names the surviving hall that
// inherits the retired hall's sessions; it is required while sessions still
// reference the hall.
type DeleteHallParams struct {
	Principal   Principal
	HallID      string
	MigrateToID string
}

// SlotInput captures the editable fields of a time slot.
type SlotInput struct {
	Start      string
	End        string
	IsBreak    bool
	BreakTitle *string
}

// UpdateSlotParams wraps the data required to update a slot.
type UpdateSlotParams struct {
	Principal Principal
	SlotID    string
	Input     SlotInput
}

// EnsureSlotsParams provisions the default slot partition for a day.
type EnsureSlotsParams struct {
	Principal Principal
	DayID     string
}

// ParticipantInput links a person to a session under a role.
type ParticipantInput struct {
	PersonID string
	Role     string
}

// SessionInput captures caller provided session fields. Extra holds the
// type-specific form fields declared by the session type registry.
type SessionInput struct {
	Title            string
	SessionType      string
	DayID            string
	StageID          string
	TimeSlotID       string
	Topic            *string
	Description      *string
	IsParallelMeal   bool
	ParallelMealType *string
	Extra            map[string]string
	Participants     []ParticipantInput
}

// CreateSessionParams wraps the data required to create a session.
type CreateSessionParams struct {
	Principal Principal
	Input     SessionInput
}

// UpdateSessionParams wraps the data required to update a session.
type UpdateSessionParams struct {
	Principal Principal
	SessionID string
	Input     SessionInput
}

// PersonInput captures caller provided speaker fields.
type PersonInput struct {
	Name         string
	Email        *string
	Title        *string
	Organization *string
	Bio          *string
}

// CreatePersonParams wraps the data required to create a person.
type CreatePersonParams struct {
	Principal Principal
	Input     PersonInput
}

// UpdatePersonParams wraps the data required to update a person.
type UpdatePersonParams struct {
	Principal Principal
	PersonID  string
	Input     PersonInput
}

// SessionDetail is a session together with its resolved participant buckets.
type SessionDetail struct {
	Session      persistence.Session
	Participants []persistence.SessionParticipant
	Roles        program.RoleBuckets
}

// ProgramView is the assembled grid of one day plus the resolved role buckets
// of every placed session, keyed by session ID.
type ProgramView struct {
	Grid  program.Grid
	Roles map[string]program.RoleBuckets
}

// AuthenticateParams carries login credentials.
type AuthenticateParams struct {
	Email    string
	Password string
}

// AuthenticateResult bundles the account and its freshly issued session.
type AuthenticateResult struct {
	Account persistence.Account
	Session persistence.AuthSession
}

// RegisterAccountParams creates an editor account. Only administrators may
// register new accounts.
type RegisterAccountParams struct {
	Principal   Principal
	Email       string
	DisplayName string
	Password    string
	IsAdmin     bool
}
