package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/shopauth/pkg/idtoken"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	RevocationsDatabase = "database"
	RevocationsRedis    = "redis"
)

type Config struct {
	AccessSecret  string        // Required: HS256 secret for access tokens (JWT_ACCESS_SECRET, alias JWT_SECRET)
	RefreshSecret string        // Required: HS256 secret for refresh tokens
	AccessTTL     time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL    time.Duration // Optional: refresh token lifetime (default: 168h)
	Issuer        string        // Optional: iss claim (default: ecom-warehouse-api)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: SQLite database file (default: ./auth.db)
	DatabaseURL    string // Required for postgres: connection URL

	RevocationBackend string // Optional: database or redis (default: database)
	RedisAddr         string // Required for redis: host:port
	RedisPassword     string
	RedisDB           int

	PepperFile string // Optional: path to file containing pepper for password hashing (default: ./pepper)

	// External identity provider for flexible authentication. Setting
	// FIREBASE_PROJECT_ID fills all three.
	IdPJWKSURL  string
	IdPIssuer   string
	IdPAudience string

	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment. A .env file in the working directory,
// when present, is loaded first without overriding variables already set.
func LoadConfig() Config {
	_ = godotenv.Load()

	cfg := Config{
		AccessSecret:  getEnvOrDefault("JWT_ACCESS_SECRET", os.Getenv("JWT_SECRET")),
		RefreshSecret: os.Getenv("JWT_REFRESH_SECRET"),
		AccessTTL:     getEnvDurationOrDefault("JWT_ACCESS_TOKEN_EXPIRY", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:    getEnvDurationOrDefault("JWT_REFRESH_TOKEN_EXPIRY", jwtx.DefaultRefreshTokenTTL),
		Issuer:        getEnvOrDefault("JWT_ISSUER", jwtx.DefaultIssuer),

		DatabaseDriver: getEnvOrDefault("AUTH_DATABASE_DRIVER", DriverSQLite),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),

		RevocationBackend: getEnvOrDefault("AUTH_REVOCATION_BACKEND", RevocationsDatabase),
		RedisAddr:         os.Getenv("AUTH_REDIS_ADDR"),
		RedisPassword:     os.Getenv("AUTH_REDIS_PASSWORD"),
		RedisDB:           getEnvIntOrDefault("AUTH_REDIS_DB", 0),

		PepperFile: getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		IdPJWKSURL:  os.Getenv("EXTERNAL_IDP_JWKS_URL"),
		IdPIssuer:   os.Getenv("EXTERNAL_IDP_ISSUER"),
		IdPAudience: os.Getenv("EXTERNAL_IDP_AUDIENCE"),

		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	if project := os.Getenv("FIREBASE_PROJECT_ID"); project != "" && cfg.IdPJWKSURL == "" {
		fb := idtoken.FirebaseConfig(project)
		cfg.IdPJWKSURL, cfg.IdPIssuer, cfg.IdPAudience = fb.JWKSURL, fb.Issuer, fb.Audience
	}

	return cfg
}

// FlexibleAuth reports whether bearer tokens from the external identity
// provider are accepted.
func (c Config) FlexibleAuth() bool { return c.IdPJWKSURL != "" }

// Validate reports configuration that would make the service unusable. A
// missing signing secret wraps jwtx.ErrConfig.
func (c Config) Validate() error {
	var errs []error

	if c.AccessSecret == "" {
		errs = append(errs, fmt.Errorf("%w: JWT_ACCESS_SECRET is not set", jwtx.ErrConfig))
	}
	if c.RefreshSecret == "" {
		errs = append(errs, fmt.Errorf("%w: JWT_REFRESH_SECRET is not set", jwtx.ErrConfig))
	}
	if c.AccessSecret != "" && c.AccessSecret == c.RefreshSecret {
		errs = append(errs, fmt.Errorf("%w: access and refresh secrets must differ", jwtx.ErrConfig))
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.RevocationBackend {
	case RevocationsDatabase:
	case RevocationsRedis:
		if c.RedisAddr == "" {
			errs = append(errs, errors.New("AUTH_REDIS_ADDR is required for the redis revocation backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_REVOCATION_BACKEND %q", c.RevocationBackend))
	}

	if c.FlexibleAuth() && (c.IdPIssuer == "" || c.IdPAudience == "") {
		errs = append(errs, errors.New("EXTERNAL_IDP_ISSUER and EXTERNAL_IDP_AUDIENCE are required with EXTERNAL_IDP_JWKS_URL"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds, matching the expiresIn field of responses
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
