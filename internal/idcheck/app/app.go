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

	"github.com/holmwood/idcheck/internal/idcheck/audit"
	httpapi "github.com/holmwood/idcheck/internal/idcheck/http"
	"github.com/holmwood/idcheck/internal/idcheck/service"
	"github.com/holmwood/idcheck/internal/idcheck/store"
	"github.com/holmwood/idcheck/internal/idcheck/store/drivers/sqlite"
	"github.com/holmwood/idcheck/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the exchange service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db      store.Store
	emitter *audit.Emitter

	exchangeService       *service.ExchangeService
	clientResponseService *service.ClientResponseService
	clients               *service.ClientAuthenticator
	housekeepingService   *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "idcheck",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	secretHashes, err := ParseClientCredentials(cfg.ClientCredentials)
	if err != nil {
		return nil, fmt.Errorf("loading client credentials: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices(secretHashes)
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("token exchange service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down token exchange service...")

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

	app.logger.Info("token exchange service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices(secretHashes map[string]string) {
	app.emitter = audit.NewEmitter(
		&audit.LogSink{Logger: app.logger},
		app.cfg.AuditTimeout,
		app.logger,
	)

	app.clients = &service.ClientAuthenticator{SecretHashes: secretHashes}

	app.exchangeService = &service.ExchangeService{
		Store:    app.db,
		Clients:  app.clients,
		Audit:    app.emitter,
		CodeTTL:  app.cfg.CodeTTL,
		TokenTTL: app.cfg.TokenTTL,
	}

	app.clientResponseService = &service.ClientResponseService{
		Store: app.db,
		Audit: app.emitter,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.cfg.HousekeepingInterval,
		app.cfg.CodeRetention,
		app.logger,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.logger)

	router.ExchangeService = app.exchangeService
	router.ClientResponseService = app.clientResponseService
	router.Clients = app.clients
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
