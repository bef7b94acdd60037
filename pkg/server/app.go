package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Duka"
	"Duka/internal/export"
	"Duka/internal/ops"
	pkgch "Duka/pkg/clickhouse"
	"Duka/pkg/config"
	xhttp "Duka/pkg/http"
	pkgkafka "Duka/pkg/kafka"
	applogger "Duka/pkg/logger"
	pkgmetrics "Duka/pkg/metrics"
	"Duka/pkg/queue"
)

// App encapsulates the ops daemon's lifecycle: it serves health, catalog
// and export-submission HTTP routes and runs the queue worker that
// drains submitted export.Job runs into whichever Sink is configured.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	httpServer *xhttp.Server
	rq         *queue.RedisQueue
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
	sink       export.Sink
	cache      duka.BytesCache
	metrics    *pkgmetrics.Recorder
}

// New wires an App from already-constructed infrastructure clients. A nil
// chClient or producer is fine as long as cfg.Export.Sink doesn't select
// it; a nil cache means export runs fetch without a byte cache.
func New(cfg *config.Config, logger *applogger.Logger, rq *queue.RedisQueue, chClient *pkgch.Client, producer *pkgkafka.Producer, sink export.Sink, cache duka.BytesCache, metrics *pkgmetrics.Recorder) *App {
	return &App{cfg: cfg, logger: logger, rq: rq, chClient: chClient, producer: producer, sink: sink, cache: cache, metrics: metrics}
}

// Run starts the HTTP server and queue worker and blocks until an
// interrupt or SIGTERM is received.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := duka.Options{
		BaseURL:          a.cfg.Duka.BaseURL,
		MaxRetries:       a.cfg.Duka.MaxRetries,
		RetryOnEmpty:     a.cfg.Duka.RetryOnEmpty,
		FailAfterRetries: a.cfg.Duka.FailAfterRetries,
		BatchSize:        a.cfg.Duka.BatchSize,
		BatchPauseMs:     int(a.cfg.Duka.BatchPause / time.Millisecond),
		UnitTimeout:      a.cfg.Duka.UnitTimeout,
	}
	job := export.NewJob(a.sink, export.PipelineConfig{
		BatchSize:     a.cfg.Export.BatchSize,
		BufferSize:    a.cfg.Export.BufferSize,
		RatePerSecond: a.cfg.Export.RatePerSec,
		MaxRetries:    a.cfg.Export.MaxRetries,
	}, policy, a.cache, a.logger, a.metrics)
	a.rq.RegisterJob(job)

	if err := a.rq.Start(); err != nil {
		return err
	}

	handler := ops.New(a.logger, a.rq, a.chClient)
	a.httpServer = xhttp.NewServer(handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)
	if err := a.httpServer.Start(); err != nil {
		a.logger.Error("http server start error", applogger.Error(err))
		return err
	}
	a.logger.Info("dukad started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown(ctx)
}

func (a *App) shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.logger.Error("http shutdown error", applogger.Error(err))
	}
	if err := a.rq.Stop(shutdownCtx); err != nil {
		a.logger.Warn("queue stop error", applogger.Error(err))
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.logger.Warn("sink close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.logger.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
	return nil
}
