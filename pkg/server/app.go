package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"PriceTrend/internal/domain/repository"
	"PriceTrend/internal/service/importer"
	"PriceTrend/internal/service/poller"
	"PriceTrend/pkg/cache"
	pkgch "PriceTrend/pkg/clickhouse"
	"PriceTrend/pkg/config"
	xhttp "PriceTrend/pkg/http"
	"PriceTrend/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	importer   *importer.Importer
	poller     *poller.Poller
	handlers   []xhttp.Handler
	chClient   *pkgch.Client
	cache      cache.Service
	publisher  repository.Publisher
	feed       repository.PriceFeed
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *logger.Logger,
	imp *importer.Importer,
	p *poller.Poller,
	handlers []xhttp.Handler,
	chClient *pkgch.Client,
	c cache.Service,
	pub repository.Publisher,
	feed repository.PriceFeed,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		importer:  imp,
		poller:    p,
		handlers:  handlers,
		chClient:  chClient,
		cache:     c,
		publisher: pub,
		feed:      feed,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Backfill history in the background. The query path reports
	// retryable "import running" until this finishes on an empty
	// series, so serving can start right away.
	go func() {
		if err := a.importer.Run(ctx); err != nil {
			a.log.Error("historical import failed", logger.Error(err))
		}
	}()

	a.poller.Start(ctx)

	a.httpServer = xhttp.NewServer(a.log, a.handlers,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.poller.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}

	if err := a.feed.Close(); err != nil {
		a.log.Warn("feed close error", logger.Error(err))
	}
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("publisher close error", logger.Error(err))
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", logger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", logger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
