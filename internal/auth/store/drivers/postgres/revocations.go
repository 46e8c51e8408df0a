package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	"github.com/jmoiron/sqlx"
)

type revocationsRepo struct {
	db sqlx.ExtContext
}

func (r *revocationsRepo) Get(ctx context.Context, userID string) (domain.Revocation, error) {
	var row revocationRow
	err := sqlx.GetContext(ctx, r.db, &row,
		`SELECT user_id, token_hash, active, created_at, revoked_at FROM refresh_revocations WHERE user_id = $1`, userID)
	if err != nil {
		return domain.Revocation{}, mapNotFound(err)
	}
	return row.domain(), nil
}

const upsertRevocation = `
INSERT INTO refresh_revocations (user_id, token_hash, active, created_at, revoked_at)
VALUES (:user_id, :token_hash, :active, :created_at, :revoked_at)
ON CONFLICT (user_id) DO UPDATE SET
    token_hash = EXCLUDED.token_hash,
    active     = EXCLUDED.active,
    created_at = EXCLUDED.created_at,
    revoked_at = EXCLUDED.revoked_at`

func (r *revocationsRepo) Put(ctx context.Context, rev domain.Revocation) error {
	row := revocationRow{
		UserID:    rev.UserID,
		TokenHash: rev.TokenHash,
		Active:    rev.Active,
		CreatedAt: rev.CreatedAt.UTC(),
	}
	if rev.CreatedAt.IsZero() {
		row.CreatedAt = now()
	}
	if rev.RevokedAt != nil {
		row.RevokedAt.Time, row.RevokedAt.Valid = rev.RevokedAt.UTC(), true
	}
	_, err := sqlx.NamedExecContext(ctx, r.db, upsertRevocation, row)
	return err
}

// Replace relies on the row lock taken by UPDATE: a second caller waiting on
// the same row re-evaluates the WHERE clause and matches nothing.
func (r *revocationsRepo) Replace(ctx context.Context, userID, expectedHash, newHash string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE refresh_revocations
SET token_hash = $1, created_at = $2, revoked_at = NULL
WHERE user_id = $3 AND token_hash = $4 AND active`, newHash, now(), userID, expectedHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *revocationsRepo) Revoke(ctx context.Context, userID, hash string) error {
	return affected(r.db.ExecContext(ctx, `
UPDATE refresh_revocations
SET active = FALSE, revoked_at = $1
WHERE user_id = $2 AND token_hash = $3 AND active`, now(), userID, hash))
}

func (r *revocationsRepo) Delete(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_revocations WHERE user_id = $1`, userID)
	return err
}

func (r *revocationsRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_revocations WHERE NOT active OR created_at < $1`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
