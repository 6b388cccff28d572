package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	domrepo "TradeLens/internal/domain/repository"
	"TradeLens/internal/middleware"
	pkgch "TradeLens/pkg/clickhouse"
	"TradeLens/pkg/config"
	xhttp "TradeLens/pkg/http"
	pkgkafka "TradeLens/pkg/kafka"
	applogger "TradeLens/pkg/logger"
	pkgqueue "TradeLens/pkg/queue"
	"TradeLens/pkg/ws"
)

// App owns the process lifecycle: bring up the optional infrastructure,
// serve HTTP, and unwind everything in dependency order on SIGINT/SIGTERM.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	handler    xhttp.Handler
	httpServer *xhttp.Server

	// Optional infrastructure, attached by the DI layer before Run.
	// Nil fields are skipped.
	Store    domrepo.ExecutionStore
	Hub      *ws.Hub
	Queue    *pkgqueue.RedisQueue
	Consumer *pkgkafka.Consumer
	Feed     pkgkafka.MessageHandler
	Pipeline *middleware.IngestPipeline
	Events   domrepo.EventPublisher
	Cache    io.Closer
	CHClient *pkgch.Client
}

// New creates an App serving the given HTTP handler.
func New(cfg *config.Config, logger *applogger.Logger, handler xhttp.Handler) *App {
	return &App{
		cfg:     cfg,
		logger:  logger,
		handler: handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogging(a.logger, 500*time.Millisecond),
		xhttp.WithMetricsEndpoint(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)

	if a.Hub != nil {
		a.Hub.Start(ctx)
		a.logger.Info("websocket hub started")
	}

	if a.Pipeline != nil {
		a.Pipeline.Start(ctx)
	}

	// Queue before HTTP: requests enqueue jobs as soon as the port opens.
	if a.Queue != nil {
		if err := a.Queue.Start(); err != nil {
			return fmt.Errorf("queue start: %w", err)
		}
	}

	if a.Consumer != nil && a.Feed != nil {
		a.Consumer.RegisterHandler(a.Feed)
		if err := a.Consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start error", applogger.Error(err))
		} else {
			a.logger.Info("kafka consumer started", applogger.String("topic", a.Feed.Topic()))
		}
	}

	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops services in reverse dependency order: the feed first so no
// new writes arrive, HTTP so in-flight requests drain, then the queue so
// jobs those requests enqueued still run, then the shared clients.
func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.Consumer != nil {
		if err := a.Consumer.Stop(shutdownCtx); err != nil {
			a.logger.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.Pipeline != nil {
		a.Pipeline.Stop()
	}

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}

	if a.Queue != nil {
		if err := a.Queue.Stop(shutdownCtx); err != nil {
			a.logger.Warn("queue stop error", applogger.Error(err))
		}
	}

	if a.Hub != nil {
		a.Hub.Stop()
	}

	// Flush aggregated logs before the producer they publish through closes.
	a.logger.RemoveCollector()

	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			a.logger.Warn("event publisher close error", applogger.Error(err))
		}
	}

	if a.CHClient != nil {
		if err := a.CHClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.logger.Warn("cache close error", applogger.Error(err))
		}
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.logger.Warn("store close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
