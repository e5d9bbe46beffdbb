package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/conference-program/internal/persistence"
)

// AccountRepository implements persistence.AccountRepository and
// persistence.AuthSessionRepository over SQLite.
type AccountRepository struct {
	pool *ConnectionPool
}

// NewAccountRepository creates a SQLite-backed account repository.
func NewAccountRepository(pool *ConnectionPool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// CreateAccount inserts an editor account with its password hash.
func (r *AccountRepository) CreateAccount(ctx context.Context, creds persistence.AccountCredentials) error {
	account := creds.Account
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, is_admin, password_hash, disabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Email, account.DisplayName, boolToInt(account.IsAdmin),
		creds.PasswordHash, boolToInt(creds.Disabled),
		formatTime(account.CreatedAt), formatTime(account.UpdatedAt),
	)
	return mapError(err)
}

// GetAccount retrieves an account by ID.
func (r *AccountRepository) GetAccount(ctx context.Context, id string) (persistence.Account, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, email, display_name, is_admin, created_at, updated_at
		FROM accounts WHERE id = ?`, id)

	var account persistence.Account
	var isAdmin int
	var createdAt, updatedAt string
	err := row.Scan(&account.ID, &account.Email, &account.DisplayName, &isAdmin,
		&createdAt, &updatedAt)
	if err != nil {
		return persistence.Account{}, mapError(err)
	}
	account.IsAdmin = isAdmin != 0
	account.CreatedAt = parseTime(createdAt)
	account.UpdatedAt = parseTime(updatedAt)
	return account, nil
}

// GetAccountCredentialsByEmail retrieves the credentials used for login.
func (r *AccountRepository) GetAccountCredentialsByEmail(ctx context.Context, email string) (persistence.AccountCredentials, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, email, display_name, is_admin, password_hash, disabled, created_at, updated_at
		FROM accounts WHERE email = ?`, email)

	var creds persistence.AccountCredentials
	var isAdmin, disabled int
	var createdAt, updatedAt string
	err := row.Scan(&creds.Account.ID, &creds.Account.Email, &creds.Account.DisplayName,
		&isAdmin, &creds.PasswordHash, &disabled, &createdAt, &updatedAt)
	if err != nil {
		return persistence.AccountCredentials{}, mapError(err)
	}
	creds.Account.IsAdmin = isAdmin != 0
	creds.Disabled = disabled != 0
	creds.Account.CreatedAt = parseTime(createdAt)
	creds.Account.UpdatedAt = parseTime(updatedAt)
	return creds, nil
}

// CreateAuthSession stores an issued token.
func (r *AccountRepository) CreateAuthSession(ctx context.Context, session persistence.AuthSession) (persistence.AuthSession, error) {
	_, err := r.pool.DB().ExecContext(ctx, `
		INSERT INTO auth_sessions (id, account_id, token, expires_at, created_at, updated_at, revoked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		session.ID, session.AccountID, session.Token,
		formatTime(session.ExpiresAt), formatTime(session.CreatedAt), formatTime(session.UpdatedAt),
		nullTime(session.RevokedAt),
	)
	if err != nil {
		return persistence.AuthSession{}, mapError(err)
	}
	return session, nil
}

// GetAuthSession retrieves a session by its token.
func (r *AccountRepository) GetAuthSession(ctx context.Context, token string) (persistence.AuthSession, error) {
	row := r.pool.DB().QueryRowContext(ctx, `
		SELECT id, account_id, token, expires_at, created_at, updated_at, revoked_at
		FROM auth_sessions WHERE token = ?`, token)
	return scanAuthSession(row)
}

// RevokeAuthSession stamps a token revoked and returns the updated record.
func (r *AccountRepository) RevokeAuthSession(ctx context.Context, token string, revokedAt time.Time) (persistence.AuthSession, error) {
	result, err := r.pool.DB().ExecContext(ctx, `
		UPDATE auth_sessions SET revoked_at = ?, updated_at = ? WHERE token = ? AND revoked_at IS NULL`,
		formatTime(revokedAt), formatTime(revokedAt), token)
	if err != nil {
		return persistence.AuthSession{}, mapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.AuthSession{}, err
	}
	if affected == 0 {
		return persistence.AuthSession{}, persistence.ErrNotFound
	}
	return r.GetAuthSession(ctx, token)
}

// DeleteExpiredAuthSessions prunes tokens whose expiry is behind the
// reference time.
func (r *AccountRepository) DeleteExpiredAuthSessions(ctx context.Context, reference time.Time) error {
	_, err := r.pool.DB().ExecContext(ctx,
		"DELETE FROM auth_sessions WHERE expires_at < ?", formatTime(reference))
	return mapError(err)
}

func scanAuthSession(row rowScanner) (persistence.AuthSession, error) {
	var session persistence.AuthSession
	var expiresAt, createdAt, updatedAt string
	var revokedAt sql.NullString
	err := row.Scan(&session.ID, &session.AccountID, &session.Token,
		&expiresAt, &createdAt, &updatedAt, &revokedAt)
	if err != nil {
		return persistence.AuthSession{}, mapError(err)
	}
	session.ExpiresAt = parseTime(expiresAt)
	session.CreatedAt = parseTime(createdAt)
	session.UpdatedAt = parseTime(updatedAt)
	if revokedAt.Valid {
		parsed := parseTime(revokedAt.String)
		session.RevokedAt = &parsed
	}
	return session, nil
}

func nullTime(value *time.Time) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*value), Valid: true}
}
