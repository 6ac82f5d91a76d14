// Package app wires configuration, logging and the engine into a runnable
// server with signal-driven graceful shutdown.
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/searchktools/tinyhttp/config"
	"github.com/searchktools/tinyhttp/core"
	"github.com/searchktools/tinyhttp/core/observability"
	"github.com/searchktools/tinyhttp/core/static"
	"github.com/searchktools/tinyhttp/logging"
)

// ShutdownTimeout bounds how long Run waits for in-flight connections.
const ShutdownTimeout = 10 * time.Second

// App is the application instance
type App struct {
	cfg     *config.Config
	logger  *logging.Logger
	engine  *core.Engine
	metrics *observability.Metrics
}

// New creates an application instance. The metrics route is registered
// first when cfg.MetricsPath is set, and cfg.StaticDir becomes the static
// file root.
func New(cfg *config.Config, logger *logging.Logger) *App {
	if logger == nil {
		logger = logging.Nop()
	}

	opts := []core.Option{
		core.WithLogger(logger),
		core.WithMaxRequestSize(cfg.MaxRequestSize),
		core.WithReadTimeout(cfg.ReadTimeout),
	}
	if cfg.StaticDir != "" {
		opts = append(opts, core.WithStatic(static.NewFS(os.DirFS(cfg.StaticDir))))
	}

	var metrics *observability.Metrics
	if cfg.MetricsPath != "" {
		metrics = observability.NewMetrics()
		opts = append(opts, core.WithMetrics(metrics))
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		engine:  core.NewEngine(opts...),
		metrics: metrics,
	}
	if metrics != nil {
		a.engine.GET(cfg.MetricsPath, metrics.Handler())
	}
	return a
}

// Engine returns the underlying engine for route registration
func (a *App) Engine() *core.Engine {
	return a.engine
}

func (a *App) Metrics() *observability.Metrics {
	return a.metrics
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// down gracefully.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("server starting",
		zap.String("addr", a.cfg.Addr()),
		zap.String("env", a.cfg.Env),
		zap.Int("max_request_size", a.cfg.MaxRequestSize),
	)

	errc := make(chan error, 1)
	go func() {
		errc <- a.engine.Run(a.cfg.Addr())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if err := a.engine.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, core.ErrServerClosed) {
		return err
	}
	return nil
}
