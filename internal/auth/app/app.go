package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/gatehouse/internal/auth/http"
	"github.com/aussiebroadwan/gatehouse/internal/auth/service"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store"
	"github.com/aussiebroadwan/gatehouse/internal/auth/store/drivers/memory"
	"github.com/aussiebroadwan/gatehouse/pkg/cryptox"
	"github.com/aussiebroadwan/gatehouse/pkg/jwtx"
	"github.com/aussiebroadwan/gatehouse/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// demoUsers are provisioned in dev when no users file is configured.
var demoUsers = []store.SeedUser{
	{Username: "user1", Password: "password", Role: "user"},
	{Username: "admin1", Password: "password", Role: "admin"},
}

// Application encapsulates the gatehouse service with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	store  store.Store
	signer jwtx.Signer

	tokenService        *service.TokenService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  cfg.LogOutput,
		}),
	}

	// Must be set before any password is hashed.
	cryptox.SetPepperPath(cfg.PepperFile)
	if cfg.PepperFile == "" {
		app.logger.Warn("no pepper file configured, using an in-memory pepper; password_hash seed entries will not verify across restarts")
	}

	app.store = memory.NewStore()

	ctx := context.Background()
	if err := app.seedUsers(ctx); err != nil {
		_ = app.store.Close()
		return nil, err
	}

	signer, err := LoadSigner(cfg, app.logger)
	if err != nil {
		_ = app.store.Close()
		return nil, err
	}
	app.signer = signer

	if err := app.initServices(); err != nil {
		_ = app.store.Close()
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Handler exposes the HTTP handler, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("gatehouse starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.store.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

// seedUsers provisions the user directory from the users file, or with the
// demo users in dev.
func (app *Application) seedUsers(ctx context.Context) error {
	var entries []store.SeedUser

	switch {
	case app.cfg.UsersFile != "":
		var err error
		entries, err = store.LoadSeedFile(app.cfg.UsersFile)
		if err != nil {
			return fmt.Errorf("failed to load users file: %w", err)
		}
	case app.cfg.IsDev():
		app.logger.Warn("no users file configured, provisioning demo users", "count", len(demoUsers))
		entries = demoUsers
	default:
		app.logger.Warn("no users file configured, the user directory is empty")
		return nil
	}

	n, err := store.Seed(ctx, app.store.Users(), entries)
	if err != nil {
		return fmt.Errorf("failed to provision users: %w", err)
	}

	app.logger.Info("user directory provisioned", "users", n)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	credentials, err := service.NewCredentialVerifier(app.store.Users())
	if err != nil {
		return fmt.Errorf("failed to initialise credential verifier: %w", err)
	}

	codec := jwtx.NewCodec(app.signer, app.cfg.Issuer,
		jwtx.WithRevocations(app.store.Revocations()),
	)

	app.tokenService = &service.TokenService{
		Codec:       codec,
		Credentials: credentials,
		Revocations: app.store.Revocations(),
		AccessTTL:   app.cfg.AccessTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.store,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		BuildVersion:       BuildVersion,
		Realm:              app.cfg.BasicRealm,
		LoginLimit:         app.cfg.LoginLimit,
		AuthenticatedLimit: app.cfg.AuthenticatedLimit,
		TrustProxyHeaders:  app.cfg.TrustProxy,
	}, app.tokenService, app.store, app.logger)
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
