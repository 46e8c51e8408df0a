package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	"github.com/aussiebroadwan/shopauth/internal/auth/store/drivers/postgres"
	redisrev "github.com/aussiebroadwan/shopauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/shopauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/shopauth/pkg/idtoken"
	goredis "github.com/redis/go-redis/v9"
)

const dependencyTimeout = 10 * time.Second

// OpenStore connects the configured database driver and applies migrations.
func OpenStore(ctx context.Context, cfg Config) (store.Store, error) {
	var (
		db  store.Store
		err error
	)

	switch cfg.DatabaseDriver {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(cfg.DatabaseFile)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}

	return db, nil
}

// OpenRevocations connects the redis refresh token store. It returns nil
// when refresh token records stay in the database.
func OpenRevocations(ctx context.Context, cfg Config) (*redisrev.Revocations, goredis.UniversalClient, error) {
	if cfg.RevocationBackend != RevocationsRedis {
		return nil, nil, nil
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	revs := redisrev.New(client, cfg.RefreshTTL)
	if err := revs.Ping(ctx); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
	}

	return revs, client, nil
}

// OpenIdentityProvider fetches the external provider's signing keys. It
// returns nil when flexible authentication is off.
func OpenIdentityProvider(ctx context.Context, cfg Config, logger *slog.Logger) (*idtoken.Verifier, error) {
	if !cfg.FlexibleAuth() {
		return nil, nil
	}

	v, err := idtoken.NewRemote(ctx, idtoken.Config{
		JWKSURL:  cfg.IdPJWKSURL,
		Issuer:   cfg.IdPIssuer,
		Audience: cfg.IdPAudience,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load identity provider keys: %w", err)
	}

	return v, nil
}
