// Package server wires the postboard API together: it opens the database,
// applies migrations, builds the services and runs the HTTP server until
// the process is signalled to stop.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/postboard/internal/logging"
	"github.com/dmitrijs2005/postboard/internal/server/auth"
	"github.com/dmitrijs2005/postboard/internal/server/config"
	"github.com/dmitrijs2005/postboard/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/postboard/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/thejerf/abtime"

	hs "github.com/dmitrijs2005/postboard/internal/server/http"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *hs.Server
}

// openDB is a seam for tests.
var openDB = func(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, logger, db, repomanager.NewPostgresRepositoryManager())
	if err != nil {
		db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, logger logging.Logger, db *sql.DB, m repomanager.RepositoryManager) (*App, error) {
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("db ping error: %w", err)
	}
	if err := m.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	gate, err := hs.NewDefaultGate(c.DefaultPolicy)
	if err != nil {
		return nil, fmt.Errorf("authorization rules: %w", err)
	}

	codec := auth.NewTokenCodec([]byte(c.SecretKey), c.AccessTokenValidityDuration, abtime.NewRealTime())

	srv := hs.NewServer(c.EndpointAddrHTTP, c.ShutdownTimeout, hs.ServerDeps{
		Users:          services.NewUserService(db, m, codec),
		Posts:          services.NewPostService(db, m),
		Images:         services.NewImageService(c),
		Health:         services.NewHealthService(db),
		Decoder:        codec,
		Gate:           gate,
		AllowedOrigins: c.CORSAllowedOrigins,
		Logger:         logger,
	})

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

// Run blocks until the parent context is cancelled or a termination signal
// arrives, then closes the database.
func (app *App) Run(parent context.Context) {
	ctx, cancelFunc := context.WithCancel(parent)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "address", app.config.EndpointAddrHTTP, "default_policy", app.config.DefaultPolicy)

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
