package sqlite

import (
	"context"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

const (
	timestampLayout = time.RFC3339
	dateLayout      = "2006-01-02"
)

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(timestampLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// DayRepository implements persistence.DayRepository over SQLite.
type DayRepository struct {
	pool *ConnectionPool
}

// NewDayRepository creates a SQLite-backed day repository.
func NewDayRepository(pool *ConnectionPool) *DayRepository {
	return &DayRepository{pool: pool}
}

// CreateDay inserts a new conference day.
func (r *DayRepository) CreateDay(ctx context.Context, day persistence.ConferenceDay) error {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO conference_days (id, name, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		day.ID, day.Name, day.Date.UTC().Format(dateLayout),
		formatTime(day.CreatedAt), formatTime(day.UpdatedAt),
	)
	return mapError(err)
}

// UpdateDay rewrites the mutable day attributes. Identity is immutable once
// sessions reference the day, so only name and date change.
func (r *DayRepository) UpdateDay(ctx context.Context, day persistence.ConferenceDay) error {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE conference_days SET name = ?, date = ?, updated_at = ? WHERE id = ?`,
		day.Name, day.Date.UTC().Format(dateLayout), formatTime(day.UpdatedAt), day.ID,
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

// GetDay retrieves a day by ID.
func (r *DayRepository) GetDay(ctx context.Context, id string) (persistence.ConferenceDay, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, name, date, created_at, updated_at
		FROM conference_days WHERE id = ?`, id)
	return scanDay(row)
}

// ListDays returns all days ordered by calendar date.
func (r *DayRepository) ListDays(ctx context.Context) ([]persistence.ConferenceDay, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, name, date, created_at, updated_at
		FROM conference_days ORDER BY date ASC, id ASC`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	days := make([]persistence.ConferenceDay, 0)
	for rows.Next() {
		day, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// DeleteDay removes a day; day_halls and time slots cascade.
func (r *DayRepository) DeleteDay(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM conference_days WHERE id = ?", id)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDay(row rowScanner) (persistence.ConferenceDay, error) {
	var day persistence.ConferenceDay
	var date, createdAt, updatedAt string
	if err := row.Scan(&day.ID, &day.Name, &date, &createdAt, &updatedAt); err != nil {
		return persistence.ConferenceDay{}, mapError(err)
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return persistence.ConferenceDay{}, err
	}
	day.Date = parsed
	day.CreatedAt = parseTime(createdAt)
	day.UpdatedAt = parseTime(updatedAt)
	return day, nil
}
