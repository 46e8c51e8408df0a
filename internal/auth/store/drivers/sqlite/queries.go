package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same queries run
// inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func newQueries(db DBTX) *Queries { return &Queries{db: db} }

type userRow struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastLoginAt  sql.NullTime
}

const userColumns = `id, email, display_name, password_hash, role, is_active, created_at, updated_at, last_login_at`

func scanUser(row *sql.Row) (userRow, error) {
	var u userRow
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.Role,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.LastLoginAt,
	)
	return u, err
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = ?`

func (q *Queries) GetUserByID(ctx context.Context, id string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = ?`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (userRow, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const createUser = `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateUser(ctx context.Context, u userRow) error {
	_, err := q.db.ExecContext(ctx, createUser,
		u.ID,
		u.Email,
		u.DisplayName,
		u.PasswordHash,
		u.Role,
		u.IsActive,
		u.CreatedAt,
		u.UpdatedAt,
		u.LastLoginAt,
	)
	return err
}

const updateUserLastLogin = `UPDATE users SET last_login_at = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserLastLogin(ctx context.Context, id string, at time.Time) (int64, error) {
	return q.exec(ctx, updateUserLastLogin, at, at, id)
}

const updateUserPasswordHash = `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`

func (q *Queries) UpdateUserPasswordHash(ctx context.Context, id, hash string, now time.Time) (int64, error) {
	return q.exec(ctx, updateUserPasswordHash, hash, now, id)
}

const setUserActive = `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`

func (q *Queries) SetUserActive(ctx context.Context, id string, active bool, now time.Time) (int64, error) {
	return q.exec(ctx, setUserActive, active, now, id)
}

type revocationRow struct {
	UserID    string
	TokenHash string
	Active    bool
	CreatedAt time.Time
	RevokedAt sql.NullTime
}

const getRevocation = `
SELECT user_id, token_hash, active, created_at, revoked_at
FROM refresh_revocations
WHERE user_id = ?`

func (q *Queries) GetRevocation(ctx context.Context, userID string) (revocationRow, error) {
	var r revocationRow
	err := q.db.QueryRowContext(ctx, getRevocation, userID).Scan(
		&r.UserID,
		&r.TokenHash,
		&r.Active,
		&r.CreatedAt,
		&r.RevokedAt,
	)
	return r, err
}

const upsertRevocation = `
INSERT INTO refresh_revocations (user_id, token_hash, active, created_at, revoked_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (user_id) DO UPDATE SET
    token_hash = excluded.token_hash,
    active     = excluded.active,
    created_at = excluded.created_at,
    revoked_at = excluded.revoked_at`

func (q *Queries) UpsertRevocation(ctx context.Context, r revocationRow) error {
	_, err := q.db.ExecContext(ctx, upsertRevocation, r.UserID, r.TokenHash, r.Active, r.CreatedAt, r.RevokedAt)
	return err
}

const replaceRevocation = `
UPDATE refresh_revocations
SET token_hash = ?, created_at = ?, revoked_at = NULL
WHERE user_id = ? AND token_hash = ? AND active = 1`

func (q *Queries) ReplaceRevocation(ctx context.Context, userID, expected, next string, now time.Time) (int64, error) {
	return q.exec(ctx, replaceRevocation, next, now, userID, expected)
}

const revokeRevocation = `
UPDATE refresh_revocations
SET active = 0, revoked_at = ?
WHERE user_id = ? AND token_hash = ? AND active = 1`

func (q *Queries) RevokeRevocation(ctx context.Context, userID, hash string, now time.Time) (int64, error) {
	return q.exec(ctx, revokeRevocation, now, userID, hash)
}

const deleteRevocation = `DELETE FROM refresh_revocations WHERE user_id = ?`

func (q *Queries) DeleteRevocation(ctx context.Context, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteRevocation, userID)
	return err
}

const deleteStaleRevocations = `DELETE FROM refresh_revocations WHERE active = 0 OR created_at < ?`

func (q *Queries) DeleteStaleRevocations(ctx context.Context, cutoff time.Time) (int64, error) {
	return q.exec(ctx, deleteStaleRevocations, cutoff)
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
