package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

var (
	dayCounter     uint64
	hallCounter    uint64
	slotCounter    uint64
	sessionCounter uint64
	personCounter  uint64
)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return time.Date(2026, time.September, 1, 8, 0, 0, 0, time.UTC)
}

// NewDay builds a conference day fixture with a unique ID.
func NewDay(name string) persistence.ConferenceDay {
	n := atomic.AddUint64(&dayCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Day %d", n)
	}
	now := ReferenceTime()
	return persistence.ConferenceDay{
		ID:        fmt.Sprintf("day-%d", n),
		Name:      name,
		Date:      now.AddDate(0, 0, int(n-1)),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewHall builds a hall fixture with a unique ID.
func NewHall(name string) persistence.Hall {
	n := atomic.AddUint64(&hallCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Hall %d", n)
	}
	now := ReferenceTime()
	return persistence.Hall{
		ID:        fmt.Sprintf("hall-%d", n),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSlot builds a time slot fixture for the given day and slot order. The
// interval follows the half-hour default partition.
func NewSlot(dayID string, order int) persistence.TimeSlot {
	n := atomic.AddUint64(&slotCounter, 1)
	startMinutes := 8*60 + (order-1)*30
	now := ReferenceTime()
	return persistence.TimeSlot{
		ID:        fmt.Sprintf("slot-%d", n),
		DayID:     dayID,
		Start:     fmt.Sprintf("%02d:%02d", startMinutes/60, startMinutes%60),
		End:       fmt.Sprintf("%02d:%02d", (startMinutes+30)/60, (startMinutes+30)%60),
		SlotOrder: order,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewSession builds a session fixture placed in the given cell.
func NewSession(title, dayID, stageID, timeSlotID string) persistence.Session {
	n := atomic.AddUint64(&sessionCounter, 1)
	if title == "" {
		title = fmt.Sprintf("Session %d", n)
	}
	now := ReferenceTime()
	return persistence.Session{
		ID:          fmt.Sprintf("session-%d", n),
		Title:       title,
		SessionType: "lecture",
		DayID:       dayID,
		StageID:     stageID,
		TimeSlotID:  timeSlotID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NewPerson builds a person fixture with a unique ID.
func NewPerson(name string) persistence.Person {
	n := atomic.AddUint64(&personCounter, 1)
	if name == "" {
		name = fmt.Sprintf("Person %d", n)
	}
	now := ReferenceTime()
	return persistence.Person{
		ID:        fmt.Sprintf("person-%d", n),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
