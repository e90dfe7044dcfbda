package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kirillkom/manual-qa/internal/bootstrap"
	"github.com/kirillkom/manual-qa/internal/config"
	"github.com/kirillkom/manual-qa/internal/core/ports"
	"github.com/kirillkom/manual-qa/internal/observability/logging"
	"github.com/kirillkom/manual-qa/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	logger := logging.NewJSONLogger("worker", cfg.LogLevel)
	slog.SetDefault(logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("worker metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeQueryAudit(ctx, func(handlerCtx context.Context, audit ports.QueryAudit) error {
		start := time.Now()
		workerMetrics.StartAuditEvent()

		saveCtx, cancel := context.WithTimeout(handlerCtx, 30*time.Second)
		defer cancel()
		saveErr := app.AuditUC.Record(saveCtx, audit)

		workerMetrics.FinishAuditEvent("worker", time.Since(start), saveErr)
		if !audit.AnsweredAt.IsZero() {
			workerMetrics.ObserveQueueLag("worker", start.Sub(audit.AnsweredAt))
		}
		return saveErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}
}
