// Journey Orchestrator — продвигает journeys по графу форм.
//
// Orchestrator:
//   - Получает journey.started и submission.received из RabbitMQ
//   - Вычисляет готовые формы и их prefill-значения
//   - Публикует form.ready для worker
//   - Завершает journey, когда все формы отправлены
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Journey/internal/mq"
	"github.com/shaiso/Journey/internal/orchestrator"
	"github.com/shaiso/Journey/internal/repo"
	"github.com/shaiso/Journey/internal/telemetry"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting journey-orchestrator")

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

	cfg := orchestrator.Config{
		Blueprints:  repo.NewBlueprintRepo(pool),
		Mappings:    repo.NewMappingRepo(pool),
		Journeys:    repo.NewJourneyRepo(pool),
		Submissions: repo.NewSubmissionRepo(pool),
		Logger:      logger,
	}

	// RabbitMQ
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger, mq.WithName("journey-orchestrator"))
	if err != nil {
		logger.Warn("RabbitMQ not available, running in polling-only mode", "error", err)
	} else {
		defer mqConn.Close()
		logger.Info("RabbitMQ connected")

		// Создаём топологию
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}

		cfg.Conn = mqConn
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	orch := orchestrator.New(cfg)

	if err := orch.Start(ctx); err != nil {
		logger.Error("failed to start orchestrator", "error", err)
		os.Exit(1)
	}

	// HTTP mux: /healthz + /metrics
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.Handler())

	port := ":8083"
	if v := os.Getenv("ORCHESTRATOR_PORT"); v != "" {
		port = ":" + v
	}

	go func() {
		logger.Info("listening", "addr", port)
		if err := http.ListenAndServe(port, mux); err != nil {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()

	orch.Stop()
	logger.Info("journey-orchestrator stopped")
}
