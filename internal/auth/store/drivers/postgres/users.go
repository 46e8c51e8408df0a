package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/jmoiron/sqlx"
)

type usersRepo struct {
	db sqlx.ExtContext
}

const selectUser = `
SELECT id, email, display_name, password_hash, role, is_active, created_at, updated_at, last_login_at
FROM users`

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.db, &row, selectUser+` WHERE id = $1`, id); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return row.domain(), nil
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row userRow
	if err := sqlx.GetContext(ctx, r.db, &row, selectUser+` WHERE email = $1`, strings.ToLower(email)); err != nil {
		return domain.User{}, mapNotFound(err)
	}
	return row.domain(), nil
}

const insertUser = `
INSERT INTO users (id, email, display_name, password_hash, role, is_active, created_at, updated_at, last_login_at)
VALUES (:id, :email, :display_name, :password_hash, :role, :is_active, :created_at, :updated_at, :last_login_at)`

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	row := userRow{
		ID:           u.ID,
		Email:        strings.ToLower(u.Email),
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.LastLoginAt != nil {
		row.LastLoginAt.Time, row.LastLoginAt.Valid = u.LastLoginAt.UTC(), true
	}
	_, err := sqlx.NamedExecContext(ctx, r.db, insertUser, row)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = $1, updated_at = $1 WHERE id = $2`, at.UTC(), userID))
}

func (r *usersRepo) UpdatePasswordHash(ctx context.Context, userID string, newHash string) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = $2 WHERE id = $3`, newHash, now(), userID))
}

func (r *usersRepo) SetUserActive(ctx context.Context, userID string, active bool) error {
	return affected(r.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`, active, now(), userID))
}
