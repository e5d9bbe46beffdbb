// Package program contains the pure scheduling-grid computations: assembling
// the day × hall × time-slot matrix and bucketing session participants for
// display. Nothing in this package performs I/O; callers always hand it a
// full snapshot and rerun it after any change.
package program

import (
	"sort"

	"github.com/example/conference-program/internal/persistence"
)

// DefaultBreakTitle labels a break slot whose title was left empty.
const DefaultBreakTitle = "Global Block"

// CellKind discriminates the content of one grid cell.
type CellKind int

const (
	// CellEmpty marks a schedulable cell holding no session.
	CellEmpty CellKind = iota
	// CellSession marks a cell occupied by a session.
	CellSession
)

// Cell is one hall column within a non-break row.
type Cell struct {
	Kind    CellKind
	Session *persistence.Session
}

// BreakBlock represents a break slot rendered as a single block spanning
// every hall column of its row.
type BreakBlock struct {
	Title string
	Span  int
}

// Row is one time slot of the assembled grid. Break rows carry a BreakBlock
// and no per-hall cells; all other rows carry exactly one cell per hall.
type Row struct {
	Slot  persistence.TimeSlot
	Break *BreakBlock
	Cells []Cell
}

// Grid is the render/edit matrix for a single day.
type Grid struct {
	Day   persistence.ConferenceDay
	Halls []persistence.Hall
	Rows  []Row
}

// BuildGrid assembles the placement matrix for a day from a full snapshot of
// its halls, slots and sessions. Sessions whose hall or slot no longer
// resolves are omitted; every empty input yields an empty grid, never an
// error.
func BuildGrid(day persistence.ConferenceDay, halls []persistence.Hall, memberships []persistence.DayHall, slots []persistence.TimeSlot, sessions []persistence.Session) Grid {
	orderedHalls := hallsForDay(day.ID, halls, memberships)

	orderedSlots := make([]persistence.TimeSlot, 0, len(slots))
	for _, slot := range slots {
		if slot.DayID != day.ID {
			continue
		}
		orderedSlots = append(orderedSlots, slot)
	}
	sort.SliceStable(orderedSlots, func(i, j int) bool {
		return orderedSlots[i].SlotOrder < orderedSlots[j].SlotOrder
	})

	// Placement lookup is a single pre-pass so cell assembly stays O(1) per
	// cell instead of scanning the session list per coordinate.
	type placement struct {
		slotID string
		hallID string
	}
	placed := make(map[placement]*persistence.Session, len(sessions))
	for i := range sessions {
		session := sessions[i]
		if session.DayID != day.ID {
			continue
		}
		placed[placement{slotID: session.TimeSlotID, hallID: session.StageID}] = &sessions[i]
	}

	rows := make([]Row, 0, len(orderedSlots))
	for _, slot := range orderedSlots {
		if slot.IsBreak {
			title := DefaultBreakTitle
			if slot.BreakTitle != nil && *slot.BreakTitle != "" {
				title = *slot.BreakTitle
			}
			span := len(orderedHalls)
			if span == 0 {
				span = 1
			}
			rows = append(rows, Row{Slot: slot, Break: &BreakBlock{Title: title, Span: span}})
			continue
		}

		cells := make([]Cell, len(orderedHalls))
		for i, hall := range orderedHalls {
			if session, ok := placed[placement{slotID: slot.ID, hallID: hall.ID}]; ok {
				cells[i] = Cell{Kind: CellSession, Session: session}
				continue
			}
			cells[i] = Cell{Kind: CellEmpty}
		}
		rows = append(rows, Row{Slot: slot, Cells: cells})
	}

	return Grid{Day: day, Halls: orderedHalls, Rows: rows}
}

// hallsForDay restricts the global hall registry to the day's membership
// relation, ordered by column position. Memberships pointing at deleted halls
// contribute nothing.
func hallsForDay(dayID string, halls []persistence.Hall, memberships []persistence.DayHall) []persistence.Hall {
	byID := make(map[string]persistence.Hall, len(halls))
	for _, hall := range halls {
		byID[hall.ID] = hall
	}

	assigned := make([]persistence.DayHall, 0, len(memberships))
	for _, membership := range memberships {
		if membership.DayID != dayID {
			continue
		}
		assigned = append(assigned, membership)
	}
	sort.SliceStable(assigned, func(i, j int) bool {
		return assigned[i].Position < assigned[j].Position
	})

	ordered := make([]persistence.Hall, 0, len(assigned))
	for _, membership := range assigned {
		hall, ok := byID[membership.HallID]
		if !ok {
			continue
		}
		ordered = append(ordered, hall)
	}
	return ordered
}
