package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockDash/pkg/config"
	xhttp "StockDash/pkg/http"
	applogger "StockDash/pkg/logger"
)

const (
	pruneInterval = time.Minute
	pruneIdle     = 10 * time.Minute
)

// Pruner drops per-client state that has been idle for at least idle.
type Pruner interface {
	Prune(idle time.Duration) int
}

type namedCloser struct {
	name string
	c    io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	sessions   io.Closer
	pruner     Pruner
	closers    []namedCloser
}

// New creates a new App. sessions, when set, is closed before the HTTP server
// stops so that websocket peers get a close frame.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server, sessions io.Closer) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{cfg: cfg, logger: l, httpServer: srv, sessions: sessions}
}

// SetPruner registers a limiter to prune periodically while running.
func (a *App) SetPruner(p Pruner) { a.pruner = p }

// OnShutdown registers c to be closed after the HTTP server has stopped.
// Closers run in registration order.
func (a *App) OnShutdown(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, namedCloser{name: name, c: c})
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.run(ctx)
}

func (a *App) run(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("dashboard started",
		applogger.String("env", a.cfg.Environment),
		applogger.String("source", a.cfg.Data.Source),
		applogger.Int("port", a.cfg.Server.Port),
	)

	pruneCtx, cancelPrune := context.WithCancel(ctx)
	defer cancelPrune()
	if a.pruner != nil {
		go a.pruneLoop(pruneCtx)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case runErr = <-a.httpServer.Errors():
		a.logger.Error("http server failed", applogger.Error(runErr))
	}
	cancelPrune()

	a.shutdown()
	return runErr
}

func (a *App) pruneLoop(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.pruner.Prune(pruneIdle); n > 0 {
				a.logger.Debug("rate limiter pruned", applogger.Int("clients", n))
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	a.logger.Info("shutting down...")

	if a.sessions != nil {
		if err := a.sessions.Close(); err != nil {
			a.logger.Warn("websocket close error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	// flush aggregated logs while the publisher is still open
	a.logger.RemoveCollector()

	for _, nc := range a.closers {
		if err := nc.c.Close(); err != nil {
			a.logger.Warn("close error", applogger.String("component", nc.name), applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
