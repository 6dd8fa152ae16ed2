package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	domrepo "CycleScope/internal/domain/repository"
	"CycleScope/internal/usecase"
	"CycleScope/pkg/cache"
	"CycleScope/pkg/config"
	xhttp "CycleScope/pkg/http"
	pkgkafka "CycleScope/pkg/kafka"
	applogger "CycleScope/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	httpHandler xhttp.Handler
	httpServer  *xhttp.Server
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	refresh     *usecase.RefreshUseCase
	publisher   domrepo.SnapshotPublisher
	cache       cache.Service
}

// New creates a new App instance with all dependencies. consumer may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpHandler xhttp.Handler,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	refresh *usecase.RefreshUseCase,
	publisher domrepo.SnapshotPublisher,
	c cache.Service,
) *App {
	return &App{
		cfg:         cfg,
		log:         log,
		httpHandler: httpHandler,
		consumer:    consumer,
		kh:          kh,
		refresh:     refresh,
		publisher:   publisher,
		cache:       c,
	}
}

// Run starts the HTTP server and the refresh consumer and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithCORSOrigins(a.cfg.Server.CORSOrigins),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithMetricsPath(a.metricsPath()),
		xhttp.WithLogger(a.log),
	)

	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.log.Info("shutdown signal received", applogger.String("signal", sig.String()))
		return a.shutdown(ctx)
	case err := <-a.httpServer.Errors():
		a.log.Error("http server failed", applogger.Error(err))
		return errors.Join(err, a.shutdown(ctx))
	}
}

// Refresh performs one refresh run without serving traffic.
func (a *App) Refresh(ctx context.Context, tags []string) (*usecase.RefreshReport, error) {
	return a.refresh.Run(ctx, tags)
}

// Close releases infrastructure clients. Safe to call after Run.
func (a *App) Close() error {
	a.log.RemoveCollector()

	var errs []error
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) metricsPath() string {
	if !a.cfg.Metrics.Enabled {
		return ""
	}
	return a.cfg.Metrics.Path
}

func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if err := a.Close(); err != nil {
		a.log.Warn("close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
