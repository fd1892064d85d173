package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Journey/internal/api"
	"github.com/shaiso/Journey/internal/cache"
	"github.com/shaiso/Journey/internal/mq"
	"github.com/shaiso/Journey/internal/repo"
	"github.com/shaiso/Journey/internal/telemetry"
)

var (
	startTime   = time.Now()
	healthTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "journey_api_healthz_requests_total",
		Help: "Total health checks handled by journey_api",
	})
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger()
	logger.Info("starting journey-api")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Подключаемся к базе данных
	pool, err := repo.NewPool(ctx)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("connected to database")

	if os.Getenv("DB_MIGRATE") == "true" {
		if err := repo.Migrate(ctx, pool); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	cfg := api.Config{
		Blueprints:  repo.NewBlueprintRepo(pool),
		Mappings:    repo.NewMappingRepo(pool),
		Journeys:    repo.NewJourneyRepo(pool),
		Submissions: repo.NewSubmissionRepo(pool),
		Reports:     repo.NewReportRepo(pool),
		Logger:      logger,
	}

	// RabbitMQ — опционально
	mqConn, err := mq.NewConnection(mq.URLFromEnv(), logger, mq.WithName("journey-api"))
	if err != nil {
		logger.Warn("RabbitMQ not available, journeys will be picked up by polling", "error", err)
	} else {
		defer mqConn.Close()
		if err := mq.SetupTopology(ctx, mqConn); err != nil {
			logger.Warn("failed to setup topology", "error", err)
		}
		cfg.Publisher = mq.NewPublisher(mqConn, logger)
	}

	// Redis — опционально
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		ttl := time.Duration(0)
		if v := os.Getenv("CACHE_TTL"); v != "" {
			if d, err := time.ParseDuration(v); err == nil {
				ttl = d
			} else {
				logger.Warn("invalid CACHE_TTL, using default", "value", v)
			}
		}

		walkCache, err := cache.New(ctx, redisURL, cache.WithTTL(ttl), cache.WithLogger(logger))
		if err != nil {
			logger.Warn("Redis not available, walk cache disabled", "error", err)
		} else {
			defer walkCache.Close()
			cfg.Cache = walkCache
			logger.Info("walk cache enabled")
		}
	}

	handler := api.NewHandler(cfg)

	mux := http.NewServeMux()

	// Health и metrics
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		healthTotal.Inc()
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "ok %s", time.Since(startTime))
	})
	mux.Handle("/metrics", promhttp.Handler())

	// Регистрируем API маршруты
	handler.RegisterRoutes(mux)

	addr := ":8080"
	if v := os.Getenv("API_PORT"); v != "" {
		addr = ":" + v
	}

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		logger.Info("listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	// Graceful shutdown с таймаутом 10 секунд
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	logger.Info("stopped")
}
