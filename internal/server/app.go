// Package server initializes and runs the profile server. It opens the
// profile store, serves the settings routes over HTTP and shuts down
// gracefully on SIGINT, SIGTERM or SIGQUIT.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/saywhat/internal/logging"
	"github.com/dmitrijs2005/saywhat/internal/server/config"
	"github.com/dmitrijs2005/saywhat/internal/server/httpapi"
	"github.com/dmitrijs2005/saywhat/internal/server/metrics"
	"github.com/dmitrijs2005/saywhat/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/saywhat/internal/server/services"
)

type App struct {
	config      *config.Config
	logger      logging.Logger
	repomanager repomanager.RepositoryManager
	handler     http.Handler
}

// NewApp opens PostgreSQL when a DSN is configured and falls back to an
// in-memory store otherwise.
func NewApp(ctx context.Context, c *config.Config, stdout io.Writer) (*App, error) {

	logger := logging.New(stdout, c.LogFormat, c.LogLevel)

	var m repomanager.RepositoryManager
	if c.DatabaseDSN != "" {
		pm, err := repomanager.NewPostgresRepositoryManager(ctx, c.DatabaseDSN, logger.With("module", "migrations"))
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		m = pm
	} else {
		logger.Warn(ctx, "no database configured, profiles are kept in memory")
		m = repomanager.NewInMemoryRepositoryManager()
	}

	gin.SetMode(gin.ReleaseMode)
	svc := services.NewProfileService(m, 0)
	handler := httpapi.NewRouter(httpapi.RouterConfig{
		BasePath:       c.BasePath,
		AllowedOrigins: c.AllowedOrigins,
		Metrics:        metrics.New(),
		MetricsPath:    c.MetricsPath,
	}, svc, logger.With("module", "httpapi"))

	return &App{config: c, logger: logger, repomanager: m, handler: handler}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run listens on the configured address and serves until ctx is done or a
// termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", app.config.EndpointAddrHTTP)
	if err != nil {
		return fmt.Errorf("listen %s: %w", app.config.EndpointAddrHTTP, err)
	}
	return app.Serve(ctx, ln)
}

// Serve is Run on an existing listener. The store is closed on return.
func (app *App) Serve(ctx context.Context, ln net.Listener) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting server...", "addr", ln.Addr().String(), "base_path", app.config.BasePath)
	app.initSignalHandler(cancelFunc)

	srv := &http.Server{Handler: app.handler}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "shutdown error", "error", err)
	}

	if err := app.repomanager.Close(); err != nil {
		app.logger.Error(shutdownCtx, "closing database", "error", err)
	}
	app.logger.Info(shutdownCtx, "server stopped")

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}
