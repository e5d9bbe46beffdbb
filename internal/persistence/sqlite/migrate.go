package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// migration is one ordered schema step. Steps run inside a transaction and
// are recorded in schema_migrations so re-running Migrate is a no-op.
type migration struct {
	version int
	name    string
	up      string
}

var migrations = []migration{
	{
		version: 1,
		name:    "program_core",
		up: `
CREATE TABLE IF NOT EXISTS conference_days (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	date       TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS halls (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	capacity   INTEGER,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS day_halls (
	day_id   TEXT NOT NULL REFERENCES conference_days(id) ON DELETE CASCADE,
	hall_id  TEXT NOT NULL REFERENCES halls(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	PRIMARY KEY (day_id, hall_id)
);

CREATE TABLE IF NOT EXISTS time_slots (
	id          TEXT PRIMARY KEY,
	day_id      TEXT NOT NULL REFERENCES conference_days(id) ON DELETE CASCADE,
	start_time  TEXT NOT NULL,
	end_time    TEXT NOT NULL,
	slot_order  INTEGER NOT NULL,
	is_break    INTEGER NOT NULL DEFAULT 0,
	break_title TEXT,
	created_at  TEXT NOT NULL,
	updated_at  TEXT NOT NULL,
	UNIQUE (day_id, slot_order)
);
`,
	},
	{
		version: 2,
		name:    "sessions_and_people",
		up: `
CREATE TABLE IF NOT EXISTS persons (
	id           TEXT PRIMARY KEY,
	name         TEXT NOT NULL,
	email        TEXT,
	title        TEXT,
	organization TEXT,
	bio          TEXT,
	created_at   TEXT NOT NULL,
	updated_at   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id                 TEXT PRIMARY KEY,
	title              TEXT NOT NULL,
	session_type       TEXT NOT NULL,
	day_id             TEXT NOT NULL REFERENCES conference_days(id),
	stage_id           TEXT NOT NULL,
	time_slot_id       TEXT NOT NULL,
	topic              TEXT,
	description        TEXT,
	is_parallel_meal   INTEGER NOT NULL DEFAULT 0,
	parallel_meal_type TEXT,
	extra              TEXT NOT NULL DEFAULT '{}',
	created_at         TEXT NOT NULL,
	updated_at         TEXT NOT NULL,
	UNIQUE (day_id, stage_id, time_slot_id)
);

CREATE TABLE IF NOT EXISTS session_participants (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	person_id  TEXT NOT NULL,
	role       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_day ON sessions(day_id);
CREATE INDEX IF NOT EXISTS idx_participants_session ON session_participants(session_id);
`,
	},
	{
		version: 3,
		name:    "editor_accounts",
		up: `
CREATE TABLE IF NOT EXISTS accounts (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE,
	display_name  TEXT NOT NULL,
	is_admin      INTEGER NOT NULL DEFAULT 0,
	password_hash TEXT NOT NULL,
	disabled      INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS auth_sessions (
	id         TEXT PRIMARY KEY,
	account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
	token      TEXT NOT NULL UNIQUE,
	expires_at TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	revoked_at TEXT
);
`,
	},
}

// Migrate applies every pending schema step in order.
func Migrate(ctx context.Context, pool *ConnectionPool) error {
	if _, err := pool.DB().ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version    INTEGER PRIMARY KEY,
	name       TEXT NOT NULL,
	applied_at TEXT NOT NULL
)`); err != nil {
		return fmt.Errorf("sqlite: create schema_migrations: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := pool.DB().QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("sqlite: read schema_migrations: %w", err)
	}
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			rows.Close()
			return err
		}
		applied[version] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, step := range migrations {
		if applied[step.version] {
			continue
		}
		err := pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			if _, err := tx.Exec(step.up); err != nil {
				return fmt.Errorf("sqlite: migration %d (%s): %w", step.version, step.name, err)
			}
			_, err := tx.Exec(
				"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
				step.version, step.name, time.Now().UTC().Format(time.RFC3339),
			)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
