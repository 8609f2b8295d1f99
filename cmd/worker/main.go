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

	"github.com/kirillkom/docqa-engine/internal/bootstrap"
	"github.com/kirillkom/docqa-engine/internal/config"
	"github.com/kirillkom/docqa-engine/internal/observability/logging"
	"github.com/kirillkom/docqa-engine/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	slog.SetDefault(logging.NewJSONLogger("docqa-worker", cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}

	workerMetrics := metrics.NewWorkerMetrics("docqa-worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		slog.Info("worker metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("worker metrics server error: %v", err)
		}
	}()

	slog.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeUnitsIngested(ctx, func(handlerCtx context.Context, documentID string) error {
		rebuildCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		workerMetrics.StartRebuild()
		start := time.Now()
		report, rebuildErr := app.BuildUC.RebuildForDocument(rebuildCtx, documentID)
		status := "ok"
		if rebuildErr != nil {
			status = "error"
		}
		workerMetrics.FinishRebuild("docqa-worker", status, time.Since(start))
		for granularity, n := range report.UnitsIndexed {
			workerMetrics.AddUnitsIndexed("docqa-worker", string(granularity), n)
		}
		return rebuildErr
	})
	if err != nil {
		log.Fatalf("worker subscribe error: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("worker metrics shutdown error", "error", err)
	}
	app.Close(shutdownCtx)
}
