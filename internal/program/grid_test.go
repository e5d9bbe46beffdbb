package program

import (
	"fmt"
	"testing"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

func day(id, name string) persistence.ConferenceDay {
	return persistence.ConferenceDay{
		ID:   id,
		Name: name,
		Date: time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC),
	}
}

func hall(id, name string) persistence.Hall {
	return persistence.Hall{ID: id, Name: name}
}

func slot(id, dayID string, order int, start, end string) persistence.TimeSlot {
	return persistence.TimeSlot{ID: id, DayID: dayID, SlotOrder: order, Start: start, End: end}
}

func breakSlot(id, dayID string, order int, title string) persistence.TimeSlot {
	s := persistence.TimeSlot{ID: id, DayID: dayID, SlotOrder: order, Start: "12:00", End: "12:30", IsBreak: true}
	if title != "" {
		s.BreakTitle = &title
	}
	return s
}

func session(id, title, dayID, stageID, slotID string) persistence.Session {
	return persistence.Session{
		ID:          id,
		Title:       title,
		SessionType: "lecture",
		DayID:       dayID,
		StageID:     stageID,
		TimeSlotID:  slotID,
	}
}

func TestBuildGrid(t *testing.T) {
	day1 := day("d1", "Day 1")
	halls := []persistence.Hall{hall("h1", "Main Hall"), hall("h2", "Room A")}
	memberships := []persistence.DayHall{
		{DayID: "d1", HallID: "h1", Position: 0},
		{DayID: "d1", HallID: "h2", Position: 1},
	}

	t.Run("places sessions and breaks", func(t *testing.T) {
		slots := []persistence.TimeSlot{
			slot("s1", "d1", 1, "09:00", "09:30"),
			breakSlot("s2", "d1", 2, "Lunch"),
		}
		sessions := []persistence.Session{session("k1", "Keynote", "d1", "h1", "s1")}

		grid := BuildGrid(day1, halls, memberships, slots, sessions)

		if len(grid.Rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(grid.Rows))
		}

		row1 := grid.Rows[0]
		if row1.Break != nil {
			t.Fatal("row 1 should not be a break row")
		}
		if len(row1.Cells) != 2 {
			t.Fatalf("expected 2 cells in row 1, got %d", len(row1.Cells))
		}
		if row1.Cells[0].Kind != CellSession || row1.Cells[0].Session.Title != "Keynote" {
			t.Errorf("expected Keynote in Main Hall, got %+v", row1.Cells[0])
		}
		if row1.Cells[1].Kind != CellEmpty {
			t.Errorf("expected Room A empty, got %+v", row1.Cells[1])
		}

		row2 := grid.Rows[1]
		if row2.Break == nil {
			t.Fatal("row 2 should be a break row")
		}
		if row2.Break.Title != "Lunch" || row2.Break.Span != 2 {
			t.Errorf("expected Lunch spanning 2 columns, got %+v", row2.Break)
		}
		if len(row2.Cells) != 0 {
			t.Errorf("break row must not have per-hall cells, got %d", len(row2.Cells))
		}
	})

	t.Run("placement invariant", func(t *testing.T) {
		slots := []persistence.TimeSlot{
			slot("s1", "d1", 1, "09:00", "09:30"),
			slot("s2", "d1", 2, "09:30", "10:00"),
		}
		sessions := []persistence.Session{
			session("a", "A", "d1", "h1", "s1"),
			session("b", "B", "d1", "h2", "s2"),
		}

		grid := BuildGrid(day1, halls, memberships, slots, sessions)

		occupied := 0
		for _, row := range grid.Rows {
			for _, cell := range row.Cells {
				if cell.Kind == CellSession {
					occupied++
					continue
				}
				if cell.Session != nil {
					t.Error("empty cell carries a session")
				}
			}
		}
		if occupied != 2 {
			t.Fatalf("expected 2 occupied cells, got %d", occupied)
		}
		if got := grid.Rows[0].Cells[0].Session.ID; got != "a" {
			t.Errorf("cell (slot 1, hall 1) = %q, want a", got)
		}
		if got := grid.Rows[1].Cells[1].Session.ID; got != "b" {
			t.Errorf("cell (slot 2, hall 2) = %q, want b", got)
		}
	})

	t.Run("hall column order follows membership positions", func(t *testing.T) {
		reversed := []persistence.DayHall{
			{DayID: "d1", HallID: "h2", Position: 0},
			{DayID: "d1", HallID: "h1", Position: 1},
		}
		grid := BuildGrid(day1, halls, reversed, []persistence.TimeSlot{slot("s1", "d1", 1, "09:00", "09:30")}, nil)
		if grid.Halls[0].ID != "h2" || grid.Halls[1].ID != "h1" {
			t.Fatalf("expected [h2 h1], got %v", grid.Halls)
		}
	})

	t.Run("break title defaults", func(t *testing.T) {
		grid := BuildGrid(day1, halls, memberships, []persistence.TimeSlot{breakSlot("s1", "d1", 1, "")}, nil)
		if grid.Rows[0].Break.Title != DefaultBreakTitle {
			t.Fatalf("expected %q, got %q", DefaultBreakTitle, grid.Rows[0].Break.Title)
		}
	})

	t.Run("zero halls renders time-only rows", func(t *testing.T) {
		grid := BuildGrid(day1, halls, nil, []persistence.TimeSlot{slot("s1", "d1", 1, "09:00", "09:30")}, nil)
		if len(grid.Halls) != 0 {
			t.Fatalf("expected no hall columns, got %d", len(grid.Halls))
		}
		if len(grid.Rows) != 1 || len(grid.Rows[0].Cells) != 0 {
			t.Fatalf("expected one cell-less row, got %+v", grid.Rows)
		}
	})

	t.Run("orphaned sessions are omitted", func(t *testing.T) {
		slots := []persistence.TimeSlot{slot("s1", "d1", 1, "09:00", "09:30")}
		sessions := []persistence.Session{
			session("dead-slot", "Orphan A", "d1", "h1", "gone"),
			session("dead-hall", "Orphan B", "d1", "gone", "s1"),
		}
		grid := BuildGrid(day1, halls, memberships, slots, sessions)
		for _, cell := range grid.Rows[0].Cells {
			if cell.Kind != CellEmpty {
				t.Fatalf("orphaned session surfaced in grid: %+v", cell)
			}
		}
	})

	t.Run("membership pointing at deleted hall is skipped", func(t *testing.T) {
		withGhost := append([]persistence.DayHall{{DayID: "d1", HallID: "deleted", Position: 0}}, memberships...)
		grid := BuildGrid(day1, halls, withGhost, nil, nil)
		if len(grid.Halls) != 2 {
			t.Fatalf("expected 2 live halls, got %d", len(grid.Halls))
		}
	})

	t.Run("empty inputs produce an empty grid", func(t *testing.T) {
		grid := BuildGrid(day1, nil, nil, nil, nil)
		if len(grid.Rows) != 0 || len(grid.Halls) != 0 {
			t.Fatalf("expected empty grid, got %+v", grid)
		}
	})

	t.Run("sessions from other days stay out", func(t *testing.T) {
		slots := []persistence.TimeSlot{slot("s1", "d1", 1, "09:00", "09:30")}
		sessions := []persistence.Session{session("x", "Elsewhere", "d2", "h1", "s1")}
		grid := BuildGrid(day1, halls, memberships, slots, sessions)
		if grid.Rows[0].Cells[0].Kind != CellEmpty {
			t.Fatal("session from another day leaked into the grid")
		}
	})
}

func TestBuildGridDeleteReload(t *testing.T) {
	// Mirrors the realtime flow: after a DELETE event the collection is
	// re-fetched and the assembler reruns on the smaller snapshot.
	day1 := day("d1", "Day 1")
	halls := []persistence.Hall{hall("h1", "Main Hall")}
	memberships := []persistence.DayHall{{DayID: "d1", HallID: "h1", Position: 0}}
	slots := []persistence.TimeSlot{slot("s1", "d1", 1, "09:00", "09:30")}
	sessions := []persistence.Session{session("s-del", "Doomed", "d1", "h1", "s1")}

	before := BuildGrid(day1, halls, memberships, slots, sessions)
	if before.Rows[0].Cells[0].Kind != CellSession {
		t.Fatal("session missing before delete")
	}

	after := BuildGrid(day1, halls, memberships, slots, nil)
	if after.Rows[0].Cells[0].Kind != CellEmpty {
		t.Fatal("cell still occupied after delete reload")
	}
}

func BenchmarkBuildGrid(b *testing.B) {
	day1 := day("d1", "Day 1")
	var halls []persistence.Hall
	var memberships []persistence.DayHall
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("h%d", i)
		halls = append(halls, hall(id, id))
		memberships = append(memberships, persistence.DayHall{DayID: "d1", HallID: id, Position: i})
	}
	var slots []persistence.TimeSlot
	var sessions []persistence.Session
	for i := 0; i < 25; i++ {
		slotID := fmt.Sprintf("s%d", i)
		slots = append(slots, slot(slotID, "d1", i+1, "09:00", "09:30"))
		for j := 0; j < 8; j++ {
			sessions = append(sessions, session(fmt.Sprintf("sess-%d-%d", i, j), "S", "d1", fmt.Sprintf("h%d", j), slotID))
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildGrid(day1, halls, memberships, slots, sessions)
	}
}
