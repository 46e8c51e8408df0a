// Package redis keeps refresh token revocation records in Redis, for
// deployments where the user directory lives elsewhere. Each user has one
// hash that expires with the refresh window; compare-and-swap transitions run
// as Lua scripts so they are atomic across replicas.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/domain"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	goredis "github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces revocation hashes.
const KeyPrefix = "shopauth:revocation:"

const (
	fieldHash      = "token_hash"
	fieldActive    = "active"
	fieldCreatedAt = "created_at"
	fieldRevokedAt = "revoked_at"
)

// ARGV: expected hash, new hash, created_at, ttl ms
var replaceLua = goredis.NewScript(`
local cur = redis.call("HMGET", KEYS[1], "token_hash", "active")
if cur[1] ~= ARGV[1] or cur[2] ~= "1" then
  return 0
end
redis.call("HSET", KEYS[1], "token_hash", ARGV[2], "created_at", ARGV[3])
redis.call("HDEL", KEYS[1], "revoked_at")
redis.call("PEXPIRE", KEYS[1], ARGV[4])
return 1
`)

// ARGV: hash, revoked_at
var revokeLua = goredis.NewScript(`
local cur = redis.call("HMGET", KEYS[1], "token_hash", "active")
if cur[1] ~= ARGV[1] or cur[2] ~= "1" then
  return 0
end
redis.call("HSET", KEYS[1], "active", "0", "revoked_at", ARGV[2])
return 1
`)

// ARGV: token_hash, active, created_at as read by the sweep
var deleteUnchangedLua = goredis.NewScript(`
local cur = redis.call("HMGET", KEYS[1], "token_hash", "active", "created_at")
if cur[1] ~= ARGV[1] or cur[2] ~= ARGV[2] or cur[3] ~= ARGV[3] then
  return 0
end
return redis.call("DEL", KEYS[1])
`)

// Revocations implements store.Revocations on Redis.
type Revocations struct {
	client goredis.UniversalClient
	ttl    time.Duration
	now    func() time.Time

	beforeDelete func(key string) // test hook between the sweep's read and delete
}

// New returns a Revocations that expires records ttl after they were written,
// normally the refresh token lifetime.
func New(client goredis.UniversalClient, ttl time.Duration) *Revocations {
	return &Revocations{client: client, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Revocations = (*Revocations)(nil)

func key(userID string) string { return KeyPrefix + userID }

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

// Ping checks the connection, for readiness probes.
func (r *Revocations) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Revocations) Get(ctx context.Context, userID string) (domain.Revocation, error) {
	fields, err := r.client.HGetAll(ctx, key(userID)).Result()
	if err != nil {
		return domain.Revocation{}, err
	}
	if len(fields) == 0 {
		return domain.Revocation{}, store.ErrNotFound
	}
	return decode(userID, fields)
}

func decode(userID string, fields map[string]string) (domain.Revocation, error) {
	rev := domain.Revocation{
		UserID:    userID,
		TokenHash: fields[fieldHash],
		Active:    fields[fieldActive] == "1",
	}

	created, err := time.Parse(time.RFC3339Nano, fields[fieldCreatedAt])
	if err != nil {
		return domain.Revocation{}, fmt.Errorf("revocation %s: created_at: %w", userID, err)
	}
	rev.CreatedAt = created

	if raw, ok := fields[fieldRevokedAt]; ok && raw != "" {
		revoked, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.Revocation{}, fmt.Errorf("revocation %s: revoked_at: %w", userID, err)
		}
		rev.RevokedAt = &revoked
	}
	return rev, nil
}

func (r *Revocations) Put(ctx context.Context, rev domain.Revocation) error {
	createdAt := rev.CreatedAt
	if createdAt.IsZero() {
		createdAt = r.now()
	}

	values := map[string]any{
		fieldHash:      rev.TokenHash,
		fieldActive:    boolFlag(rev.Active),
		fieldCreatedAt: formatTime(createdAt),
	}
	if rev.RevokedAt != nil {
		values[fieldRevokedAt] = formatTime(*rev.RevokedAt)
	}

	k := key(rev.UserID)
	_, err := r.client.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, values)
		p.PExpire(ctx, k, r.ttl)
		return nil
	})
	return err
}

func (r *Revocations) Replace(ctx context.Context, userID, expectedHash, newHash string) error {
	ok, err := replaceLua.Run(ctx, r.client, []string{key(userID)},
		expectedHash, newHash, formatTime(r.now()), r.ttl.Milliseconds()).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return store.ErrConflict
	}
	return nil
}

func (r *Revocations) Revoke(ctx context.Context, userID, hash string) error {
	ok, err := revokeLua.Run(ctx, r.client, []string{key(userID)}, hash, formatTime(r.now())).Int()
	if err != nil {
		return err
	}
	if ok == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *Revocations) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, key(userID)).Err()
}

// DeleteStale sweeps records that were revoked or written before cutoff.
// Records also expire on their own, so this mostly catches revoked ones.
func (r *Revocations) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	var (
		cursor  uint64
		removed int64
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, KeyPrefix+"*", 500).Result()
		if err != nil {
			return removed, err
		}

		for _, k := range keys {
			fields, err := r.client.HMGet(ctx, k, fieldHash, fieldActive, fieldCreatedAt).Result()
			if err != nil {
				if errors.Is(err, goredis.Nil) {
					continue
				}
				return removed, err
			}
			if !stale(fields, cutoff) {
				continue
			}
			if r.beforeDelete != nil {
				r.beforeDelete(k)
			}

			// Only delete the record that was judged stale; a login may have
			// rewritten it since.
			hash, _ := fields[0].(string)
			active, _ := fields[1].(string)
			created, _ := fields[2].(string)
			n, err := deleteUnchangedLua.Run(ctx, r.client, []string{k}, hash, active, created).Int64()
			if err != nil {
				return removed, err
			}
			removed += n
		}

		cursor = next
		if cursor == 0 {
			return removed, nil
		}
	}
}

// stale reports whether HMGET token_hash, active, created_at describes a
// record the sweep should remove.
func stale(fields []any, cutoff time.Time) bool {
	active, _ := fields[1].(string)
	if active != "1" {
		return true
	}
	raw, _ := fields[2].(string)
	created, err := time.Parse(time.RFC3339Nano, raw)
	return err != nil || created.Before(cutoff)
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
