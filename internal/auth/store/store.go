package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by Revocations.Replace when the stored record
	// no longer matches what the caller expected.
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Repositories are reached through methods so that a Tx hands
// out repositories bound to the transaction and nothing else.
type Store interface {
	Users() Users
	Revocations() Revocations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. The transaction is committed
	// when fn returns nil and rolled back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks a user up by (lower cased) email during login.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser inserts a new user. ErrAlreadyExists when the email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateLastLogin records a successful login.
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error

	// UpdatePasswordHash replaces the stored hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetUserActive flips the activation flag. ErrNotFound for unknown users.
	SetUserActive(ctx context.Context, userID string, active bool) error
}

// Revocations keeps at most one refresh token record per user.
type Revocations interface {
	// Get returns the user's record or ErrNotFound.
	Get(ctx context.Context, userID string) (domain.Revocation, error)

	// Put upserts the user's record, replacing whatever was there.
	Put(ctx context.Context, rev domain.Revocation) error

	// Replace swaps the token hash atomically. It succeeds only when the
	// record exists, is active and holds expectedHash; otherwise ErrConflict.
	Replace(ctx context.Context, userID, expectedHash, newHash string) error

	// Revoke marks the record inactive if it holds hash. ErrNotFound when
	// there is no matching active record.
	Revoke(ctx context.Context, userID, hash string) error

	// Delete removes the user's record. Deleting nothing is not an error.
	Delete(ctx context.Context, userID string) error

	// DeleteStale removes inactive records and records created before
	// cutoff, returning how many were removed.
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}
