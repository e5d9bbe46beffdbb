package sqlite

import (
	"context"
	"database/sql"

	"github.com/example/conference-program/internal/persistence"
)

// HallRepository implements persistence.HallRepository over SQLite. The hall
// registry is global; per-day membership lives in day_halls.
type HallRepository struct {
	pool *ConnectionPool
}

// NewHallRepository creates a SQLite-backed hall repository.
func NewHallRepository(pool *ConnectionPool) *HallRepository {
	return &HallRepository{pool: pool}
}

// CreateHall inserts a new hall into the global registry.
func (r *HallRepository) CreateHall(ctx context.Context, hall persistence.Hall) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO halls (id, name, capacity, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		hall.ID, hall.Name, nullInt(hall.Capacity),
		formatTime(hall.CreatedAt), formatTime(hall.UpdatedAt),
	)
	return mapError(err)
}

// UpdateHall rewrites the hall's mutable attributes.
func (r *HallRepository) UpdateHall(ctx context.Context, hall persistence.Hall) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE halls SET name = ?, capacity = ?, updated_at = ? WHERE id = ?`,
		hall.Name, nullInt(hall.Capacity), formatTime(hall.UpdatedAt), hall.ID,
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

// GetHall retrieves a hall by ID.
func (r *HallRepository) GetHall(ctx context.Context, id string) (persistence.Hall, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, capacity, created_at, updated_at
		FROM halls WHERE id = ?`, id)
	return scanHall(row)
}

// ListHalls returns the full registry ordered by name.
func (r *HallRepository) ListHalls(ctx context.Context) ([]persistence.Hall, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, capacity, created_at, updated_at
		FROM halls ORDER BY name ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	halls := make([]persistence.Hall, 0)
	for rows.Next() {
		hall, err := scanHall(rows)
		if err != nil {
			return nil, err
		}
		halls = append(halls, hall)
	}
	return halls, rows.Err()
}

// DeleteHall removes a hall; day memberships cascade. Callers are expected to
// reassign sessions first, the database does not guard that.
func (r *HallRepository) DeleteHall(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM halls WHERE id = ?", id)
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

// AssignHallToDay records hall membership with a column position.
func (r *HallRepository) AssignHallToDay(ctx context.Context, assignment persistence.DayHall) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO day_halls (day_id, hall_id, position) VALUES (?, ?, ?)`,
		assignment.DayID, assignment.HallID, assignment.Position,
	)
	return mapError(err)
}

// RemoveHallFromDay deletes a membership record.
func (r *HallRepository) RemoveHallFromDay(ctx context.Context, dayID, hallID string) error {
	result, err := r.pool.DB().ExecContext(ctx,
		"DELETE FROM day_halls WHERE day_id = ? AND hall_id = ?", dayID, hallID)
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

// ListDayHalls returns the memberships of one day ordered by position.
func (r *HallRepository) ListDayHalls(ctx context.Context, dayID string) ([]persistence.DayHall, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT day_id, hall_id, position
		FROM day_halls WHERE day_id = ? ORDER BY position ASC`, dayID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	memberships := make([]persistence.DayHall, 0)
	for rows.Next() {
		var m persistence.DayHall
		if err := rows.Scan(&m.DayID, &m.HallID, &m.Position); err != nil {
			return nil, mapError(err)
		}
		memberships = append(memberships, m)
	}
	return memberships, rows.Err()
}

func scanHall(row rowScanner) (persistence.Hall, error) {
	var hall persistence.Hall
	var capacity sql.NullInt64
	var createdAt, updatedAt string
	if err := row.Scan(&hall.ID, &hall.Name, &capacity, &createdAt, &updatedAt); err != nil {
		return persistence.Hall{}, mapError(err)
	}
	hall.Capacity = intPtr(capacity)
	hall.CreatedAt = parseTime(createdAt)
	hall.UpdatedAt = parseTime(updatedAt)
	return hall, nil
}
