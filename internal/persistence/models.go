package persistence

import "time"

// ConferenceDay represents one calendar day of the event. Its identity is
// immutable once sessions reference it.
type ConferenceDay struct {
	ID        string
	Name      string
	Date      time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Hall represents a physical or virtual venue track in the global registry.
type Hall struct {
	ID        string
	Name      string
	Capacity  *int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DayHall associates a hall with a conference day and fixes its left-to-right
// column position for that day.
type DayHall struct {
	DayID    string
	HallID   string
	Position int
}

// TimeSlot represents an ordered interval within a day's schedulable time.
// Start and End are wall-clock values formatted as "HH:MM". A break slot spans
// the whole grid row instead of holding per-hall sessions.
type TimeSlot struct {
	ID         string
	DayID      string
	Start      string
	End        string
	SlotOrder  int
	IsBreak    bool
	BreakTitle *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Session represents a program entry placed into the day × hall × slot grid.
// Extra carries the type-specific form fields that have no dedicated column.
type Session struct {
	ID               string
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
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SessionParticipant links a person to a session under a specific role.
type SessionParticipant struct {
	ID        string
	SessionID string
	PersonID  string
	Role      string
}

// Person represents a speaker record independent of any session.
type Person struct {
	ID           string
	Name         string
	Email        *string
	Title        *string
	Organization *string
	Bio          *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Account represents an editor or administrator login.
type Account struct {
	ID          string
	Email       string
	DisplayName string
	IsAdmin     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountCredentials bundles an account with its stored password hash.
type AccountCredentials struct {
	Account      Account
	PasswordHash string
	Disabled     bool
}

// AuthSession represents an authentication token issued to an account.
type AuthSession struct {
	ID        string
	AccountID string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
