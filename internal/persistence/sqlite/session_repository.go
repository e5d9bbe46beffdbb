package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/example/conference-program/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository over SQLite.
// Type-specific form fields travel in the extra column as a JSON object.
type SessionRepository struct {
	pool *ConnectionPool
}

// NewSessionRepository creates a SQLite-backed session repository.
func NewSessionRepository(pool *ConnectionPool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, title, session_type, day_id, stage_id, time_slot_id,
	topic, description, is_parallel_meal, parallel_meal_type, extra, created_at, updated_at`

// CreateSession inserts a session. The UNIQUE(day_id, stage_id, time_slot_id)
// constraint surfaces placement collisions as ErrDuplicate.
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	extra, err := encodeExtra(session.Extra)
	if err != nil {
		return err
	}
	_, err = r.pool.DB().ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.Title, session.SessionType,
		session.DayID, session.StageID, session.TimeSlotID,
		nullString(session.Topic), nullString(session.Description),
		boolToInt(session.IsParallelMeal), nullString(session.ParallelMealType),
		extra, formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
	)
	return mapError(err)
}

// UpdateSession rewrites a session including its placement columns.
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) error {
	extra, err := encodeExtra(session.Extra)
	if err != nil {
		return err
	}
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE sessions
		SET title = ?, session_type = ?, day_id = ?, stage_id = ?, time_slot_id = ?,
			topic = ?, description = ?, is_parallel_meal = ?, parallel_meal_type = ?,
			extra = ?, updated_at = ?
		WHERE id = ?`,
		session.Title, session.SessionType,
		session.DayID, session.StageID, session.TimeSlotID,
		nullString(session.Topic), nullString(session.Description),
		boolToInt(session.IsParallelMeal), nullString(session.ParallelMealType),
		extra, formatTime(session.UpdatedAt), session.ID,
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

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	return scanSession(row)
}

// ListSessions returns sessions matching the filter, ordered by creation time
// for stable output.
func (r *SessionRepository) ListSessions(ctx context.Context, filter persistence.SessionFilter) ([]persistence.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions WHERE 1=1"
	args := make([]any, 0, 2)
	if filter.DayID != "" {
		query += " AND day_id = ?"
		args = append(args, filter.DayID)
	}
	if filter.StageID != "" {
		query += " AND stage_id = ?"
		args = append(args, filter.StageID)
	}
	query += " ORDER BY created_at ASC, id ASC"

	rows, err := r.pool.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	sessions := make([]persistence.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session; participants cascade.
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.pool.DB().ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
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

// FindByPlacement returns the session occupying one grid cell, or ErrNotFound
// when the cell is empty.
func (r *SessionRepository) FindByPlacement(ctx context.Context, dayID, stageID, timeSlotID string) (persistence.Session, error) {
	row := r.pool.DB().QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE day_id = ? AND stage_id = ? AND time_slot_id = ?",
		dayID, stageID, timeSlotID)
	return scanSession(row)
}

// ReassignSessions moves every session on one hall to another and reports how
// many moved. Used when retiring a hall. A destination cell already held by
// a session on the target hall fails the whole move with ErrDuplicate before
// any row changes; the placement uniqueness constraint backstops the check.
func (r *SessionRepository) ReassignSessions(ctx context.Context, fromHallID, toHallID string) (int, error) {
	var moved int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		var collisions int
		err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM sessions src
			JOIN sessions dst
			  ON dst.stage_id = ?
			 AND dst.day_id = src.day_id
			 AND dst.time_slot_id = src.time_slot_id
			WHERE src.stage_id = ?`,
			toHallID, fromHallID).Scan(&collisions)
		if err != nil {
			return mapError(err)
		}
		if collisions > 0 {
			return persistence.ErrDuplicate
		}

		result, err := tx.ExecContext(ctx,
			"UPDATE sessions SET stage_id = ? WHERE stage_id = ?", toHallID, fromHallID)
		if err != nil {
			return mapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		moved = int(affected)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return moved, nil
}

// ReplaceParticipants swaps the full participant list of a session in one
// transaction.
func (r *SessionRepository) ReplaceParticipants(ctx context.Context, sessionID string, participants []persistence.SessionParticipant) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM session_participants WHERE session_id = ?", sessionID); err != nil {
			return mapError(err)
		}
		for _, p := range participants {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO session_participants (id, session_id, person_id, role)
				VALUES (?, ?, ?, ?)`,
				p.ID, sessionID, p.PersonID, p.Role)
			if err != nil {
				return mapError(err)
			}
		}
		return nil
	})
}

// ListParticipants returns a session's participant records.
func (r *SessionRepository) ListParticipants(ctx context.Context, sessionID string) ([]persistence.SessionParticipant, error) {
	rows, err := r.pool.DB().QueryContext(ctx, `
		SELECT id, session_id, person_id, role
		FROM session_participants WHERE session_id = ? ORDER BY id ASC`, sessionID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	participants := make([]persistence.SessionParticipant, 0)
	for rows.Next() {
		var p persistence.SessionParticipant
		if err := rows.Scan(&p.ID, &p.SessionID, &p.PersonID, &p.Role); err != nil {
			return nil, mapError(err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var session persistence.Session
	var topic, description, mealType sql.NullString
	var isParallelMeal int
	var extra, createdAt, updatedAt string
	err := row.Scan(&session.ID, &session.Title, &session.SessionType,
		&session.DayID, &session.StageID, &session.TimeSlotID,
		&topic, &description, &isParallelMeal, &mealType,
		&extra, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Session{}, mapError(err)
	}
	session.Topic = stringPtr(topic)
	session.Description = stringPtr(description)
	session.IsParallelMeal = isParallelMeal != 0
	session.ParallelMealType = stringPtr(mealType)
	session.Extra, err = decodeExtra(extra)
	if err != nil {
		return persistence.Session{}, err
	}
	session.CreatedAt = parseTime(createdAt)
	session.UpdatedAt = parseTime(updatedAt)
	return session, nil
}

func encodeExtra(extra map[string]string) (string, error) {
	if len(extra) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(extra)
	if err != nil {
		return "", fmt.Errorf("sqlite: encode session extra: %w", err)
	}
	return string(encoded), nil
}

func decodeExtra(raw string) (map[string]string, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	extra := make(map[string]string)
	if err := json.Unmarshal([]byte(raw), &extra); err != nil {
		return nil, fmt.Errorf("sqlite: decode session extra: %w", err)
	}
	return extra, nil
}
