package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	httpapi "github.com/aussiebroadwan/taskboard/internal/taskboard/http"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/postgres"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the store, services and HTTP server together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	tokenService        *service.TokenService
	authService         *service.AuthService
	taskService         *service.TaskService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
// A missing signing secret fails here, before anything listens.
func New(ctx context.Context, cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "taskboard",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	cryptox.SetPepperPath(app.cfg.PepperPath)

	if err := app.initDatabase(ctx); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if app.cfg.SeedAdmin {
		seedCtx := slogx.WithContext(ctx, app.logger)
		if _, err := app.bootstrapService.Seed(seedCtx, service.SeedConfig{
			AdminUsername: app.cfg.AdminUsername,
			AdminEmail:    app.cfg.AdminEmail,
			AdminPassword: app.cfg.AdminPassword,
		}); err != nil {
			_ = app.db.Close()
			return nil, fmt.Errorf("failed to seed admin user: %w", err)
		}
	}

	app.initHTTP()
	return app, nil
}

// Handler exposes the routed HTTP handler.
func (app *Application) Handler() http.Handler { return app.router }

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("taskboard starting", "addr", app.cfg.Addr, "driver", app.cfg.DBDriver, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		_ = app.db.Close()
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
	app.logger.Info("shutting down taskboard...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("taskboard stopped")
	return nil
}

// initDatabase opens the configured driver and applies migrations
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch strings.ToLower(app.cfg.DBDriver) {
	case DriverPostgres:
		db, err = postgres.NewStore(ctx, app.cfg.DBDSN)
	default:
		db, err = sqlite.NewStore(app.cfg.DBDSN)
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DBDriver)
	return nil
}

func (app *Application) initServices() error {
	tokens, err := service.NewTokenService(app.db, app.cfg.JWTSecret, service.TokenOptions{
		Issuer:     app.cfg.JWTIssuer,
		Audience:   app.cfg.JWTAudience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}
	app.tokenService = tokens

	app.authService = &service.AuthService{Store: app.db, Tokens: tokens}
	app.taskService = &service.TaskService{Store: app.db}
	app.userService = &service.UserService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.tokenService.Verifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Limits = httpapi.RateLimits{
		Credentials: app.cfg.CredentialsLimit,
		API:         app.cfg.APILimit,
	}
	router.AuthService = app.authService
	router.TokenService = app.tokenService
	router.TaskService = app.taskService
	router.UserService = app.userService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              app.cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
