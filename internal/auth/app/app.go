package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/shopauth/internal/auth/http"
	"github.com/aussiebroadwan/shopauth/internal/auth/metrics"
	"github.com/aussiebroadwan/shopauth/internal/auth/service"
	"github.com/aussiebroadwan/shopauth/internal/auth/store"
	redisrev "github.com/aussiebroadwan/shopauth/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/shopauth/pkg/cryptox"
	"github.com/aussiebroadwan/shopauth/pkg/idtoken"
	"github.com/aussiebroadwan/shopauth/pkg/jwtx"
	"github.com/aussiebroadwan/shopauth/pkg/slogx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	redis       goredis.UniversalClient // nil unless AUTH_REVOCATION_BACKEND=redis
	revocations *redisrev.Revocations   // nil unless AUTH_REVOCATION_BACKEND=redis
	idp         *idtoken.Verifier       // nil unless flexible authentication is on
	codec       *jwtx.Codec
	registry    *prometheus.Registry
	metrics     *metrics.Collector

	// Services
	authService         *service.AuthService
	authenticator       *service.Authenticator
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// cfg must have passed Validate.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDependencies(); err != nil {
		app.closeDependencies()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"revocations", app.cfg.RevocationBackend,
		"flexible_auth", app.cfg.FlexibleAuth(),
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			app.housekeepingService.Stop()
			app.closeDependencies()
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	if err := app.closeDependencies(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the routed HTTP handler, for in-process tests.
func (app *Application) Handler() http.Handler { return app.router }

// initDependencies connects the database, the optional redis refresh token
// store and the optional external identity provider.
func (app *Application) initDependencies() error {
	ctx, cancel := context.WithTimeout(context.Background(), dependencyTimeout)
	defer cancel()

	db, err := OpenStore(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.db = db
	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)

	revs, client, err := OpenRevocations(ctx, app.cfg)
	if err != nil {
		return err
	}
	app.revocations, app.redis = revs, client
	if revs != nil {
		app.logger.Info("refresh tokens tracked in redis", "addr", app.cfg.RedisAddr)
	}

	// The key set refreshes in the background for the life of the process,
	// so it must not inherit the startup deadline.
	idp, err := OpenIdentityProvider(context.Background(), app.cfg, app.logger)
	if err != nil {
		return err
	}
	app.idp = idp
	if idp != nil {
		app.logger.Info("flexible authentication enabled", "issuer", app.cfg.IdPIssuer)
	}

	app.codec = jwtx.NewCodec(jwtx.Options{
		AccessSecret:  []byte(app.cfg.AccessSecret),
		RefreshSecret: []byte(app.cfg.RefreshSecret),
		AccessTTL:     app.cfg.AccessTTL,
		RefreshTTL:    app.cfg.RefreshTTL,
		Issuer:        app.cfg.Issuer,
	})

	app.registry = prometheus.NewRegistry()
	app.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app.metrics = metrics.NewCollector(app.registry)

	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	var revs store.Revocations = app.db.Revocations()

	app.authService = &service.AuthService{
		Store:    app.db,
		Codec:    app.codec,
		Observer: app.metrics,
	}
	if app.revocations != nil {
		app.authService.Revocations = app.revocations
		revs = app.revocations
	}

	var verifier service.IdentityVerifier = &service.PrimaryVerifier{
		Codec: app.codec,
		Users: app.db.Users(),
	}
	if app.idp != nil {
		verifier = &service.FallbackVerifier{
			Primary: verifier,
			Secondary: &service.ExternalVerifier{
				Tokens: app.idp,
				Users:  app.db.Users(),
			},
		}
	}
	app.authenticator = &service.Authenticator{
		Verifier: verifier,
		Observer: app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		revs,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.codec.TTL(jwtx.KindRefresh),
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.logger)

	// Wire services to router
	router.AuthService = app.authService
	router.Authenticator = app.authenticator
	router.Metrics = app.metrics
	router.Gatherer = app.registry
	router.Readiness = httpapi.Readiness{
		Store:            app.db,
		Codec:            app.codec,
		IdentityProvider: app.idp != nil,
	}
	if app.revocations != nil {
		router.Readiness.Revocations = app.revocations
	}
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// closeDependencies releases whatever initDependencies opened. The database
// error, if any, is returned; the rest are logged.
func (app *Application) closeDependencies() error {
	if app.idp != nil {
		app.idp.Close()
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if app.db == nil {
		return nil
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}
