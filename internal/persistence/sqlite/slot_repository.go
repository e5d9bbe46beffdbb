package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/conference-program/internal/persistence"
)

// TimeSlotRepository implements persistence.TimeSlotRepository over SQLite.
type TimeSlotRepository struct {
	pool *ConnectionPool
}

// NewTimeSlotRepository creates a SQLite-backed time slot repository.
func NewTimeSlotRepository(pool *ConnectionPool) *TimeSlotRepository {
	return &TimeSlotRepository{pool: pool}
}

// CreateSlots inserts the given slots in one transaction. The
// UNIQUE(day_id, slot_order) constraint makes concurrent provisioning safe:
// the loser of the race gets ErrDuplicate and nothing is written.
func (r *TimeSlotRepository) CreateSlots(ctx context.Context, slots []persistence.TimeSlot) error {
	if len(slots) == 0 {
		return nil
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO time_slots
				(id, day_id, start_time, end_time, slot_order, is_break, break_title, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return mapError(err)
		}
		defer stmt.Close()

		for _, slot := range slots {
			_, err := stmt.ExecContext(ctx,
				slot.ID, slot.DayID, slot.Start, slot.End, slot.SlotOrder,
				boolToInt(slot.IsBreak), nullString(slot.BreakTitle),
				formatTime(slot.CreatedAt), formatTime(slot.UpdatedAt),
			)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// UpdateSlot rewrites a slot's interval and break marking. Slot order stays
// fixed so existing placements keep their row.
func (r *TimeSlotRepository) UpdateSlot(ctx context.Context, slot persistence.TimeSlot) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE time_slots
		SET start_time = ?, end_time = ?, is_break = ?, break_title = ?, updated_at = ?
		WHERE id = ?`,
		slot.Start, slot.End, boolToInt(slot.IsBreak), nullString(slot.BreakTitle),
		formatTime(slot.UpdatedAt), slot.ID,
	)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// ListSlots returns a day's slots ordered by slot_order.
func (r *TimeSlotRepository) ListSlots(ctx context.Context, dayID string) ([]persistence.TimeSlot, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, day_id, start_time, end_time, slot_order, is_break, break_title, created_at, updated_at
		FROM time_slots WHERE day_id = ? ORDER BY slot_order ASC`, dayID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	slots := make([]persistence.TimeSlot, 0)
	for rows.Next() {
		var slot persistence.TimeSlot
		var isBreak int
		var breakTitle sql.NullString
		var createdAt, updatedAt string
		err := rows.Scan(&slot.ID, &slot.DayID, &slot.Start, &slot.End, &slot.SlotOrder,
			&isBreak, &breakTitle, &createdAt, &updatedAt)
		if err != nil {
			return nil, mapError(err)
		}
		slot.IsBreak = isBreak != 0
		slot.BreakTitle = stringPtr(breakTitle)
		slot.CreatedAt = parseTime(createdAt)
		slot.UpdatedAt = parseTime(updatedAt)
		slots = append(slots, slot)
	}
	return slots, rows.Err()
}

// DeleteSlot removes one slot.
func (r *TimeSlotRepository) DeleteSlot(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM time_slots WHERE id = ?", id)
	if err != nil {
		return mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
