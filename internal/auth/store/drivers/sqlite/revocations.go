package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
)

type revocationsRepo struct {
	q *Queries
}

func (r *revocationsRepo) Get(ctx context.Context, userID string) (domain.Revocation, error) {
	row, err := r.q.GetRevocation(ctx, userID)
	if err != nil {
		return domain.Revocation{}, mapNotFound(err)
	}
	return mapRevocation(row), nil
}

func (r *revocationsRepo) Put(ctx context.Context, rev domain.Revocation) error {
	createdAt := rev.CreatedAt
	if createdAt.IsZero() {
		createdAt = now()
	}
	return r.q.UpsertRevocation(ctx, revocationRow{
		UserID:    rev.UserID,
		TokenHash: rev.TokenHash,
		Active:    rev.Active,
		CreatedAt: createdAt.UTC(),
		RevokedAt: mapOptionalTime(rev.RevokedAt),
	})
}

// Replace is a single conditional UPDATE, so two callers presenting the same
// expected hash cannot both match.
func (r *revocationsRepo) Replace(ctx context.Context, userID, expectedHash, newHash string) error {
	n, err := r.q.ReplaceRevocation(ctx, userID, expectedHash, newHash, now())
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *revocationsRepo) Revoke(ctx context.Context, userID, hash string) error {
	return affected(r.q.RevokeRevocation(ctx, userID, hash, now()))
}

func (r *revocationsRepo) Delete(ctx context.Context, userID string) error {
	return r.q.DeleteRevocation(ctx, userID)
}

func (r *revocationsRepo) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return r.q.DeleteStaleRevocations(ctx, cutoff.UTC())
}
