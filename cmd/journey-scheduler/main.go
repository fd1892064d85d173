// Journey Scheduler — периодический аудит полноты привязок.
//
// Только лидер (pg_advisory_lock) выполняет аудит; остальные
// экземпляры пропускают тики.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Journey/internal/repo"
	"github.com/shaiso/Journey/internal/scheduler"
	"github.com/shaiso/Journey/internal/telemetry"
)

const auditLockKey int64 = 424242

func main() {
	logger := telemetry.SetupLogger()
	logger.Info("starting journey-scheduler")

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// DB pool
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("database connected")

	lock := repo.NewAdvisoryLock(pool, auditLockKey)
	defer func() {
		unlockCtx, unlockCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer unlockCancel()
		if err := lock.Unlock(unlockCtx); err != nil {
			logger.Warn("failed to release leader lock", "error", err)
		}
	}()

	sched, err := scheduler.New(scheduler.Config{
		Blueprints: repo.NewBlueprintRepo(pool),
		Mappings:   repo.NewMappingRepo(pool),
		Reports:    repo.NewReportRepo(pool),
		Lock:       lock,
		Spec:       os.Getenv("AUDIT_CRON"),
		Logger:     logger,
	})
	if err != nil {
		logger.Error("invalid audit schedule", "error", err)
		os.Exit(1)
	}

	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8081"
	if v := os.Getenv("SCHEDULER_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	<-ctx.Done()

	sched.Stop()
	logger.Info("journey-scheduler stopped")
}
