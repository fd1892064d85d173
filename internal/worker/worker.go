package worker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/mq"
)

// Default configuration values.
const (
	defaultPrefetch    = 5
	defaultHTTPTimeout = 10 * time.Second
)

// BlueprintStore — чтение blueprints (нужен webhook URL).
type BlueprintStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Blueprint, error)
}

// Worker доставляет уведомления о готовых формах.
//
// Worker — stateless компонент системы, который:
//   - Получает события form.ready из очереди RabbitMQ
//   - Отправляет их на webhook blueprint
//   - Повторяет доставку с exponential backoff
//   - Отправляет непринятые уведомления в DLQ
//
// Workers масштабируются горизонтально: несколько экземпляров
// могут потреблять из одной очереди.
type Worker struct {
	blueprints BlueprintStore
	conn       *mq.Connection
	notifier   *WebhookNotifier
	retry      RetryPolicy

	consumer *mq.Consumer
	prefetch int

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	Blueprints BlueprintStore
	Conn       *mq.Connection

	// Client — HTTP клиент для webhook (опционально).
	Client *http.Client

	// Retry — политика повторов (нулевое значение — DefaultRetryPolicy).
	Retry RetryPolicy

	// Prefetch — сколько уведомлений доставляется параллельно (default: 5).
	Prefetch int

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	retry := cfg.Retry
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = defaultPrefetch
	}

	return &Worker{
		blueprints: cfg.Blueprints,
		conn:       cfg.Conn,
		notifier:   NewWebhookNotifier(client),
		retry:      retry,
		prefetch:   prefetch,
		logger:     logger,
	}
}

// Start запускает потребление form.ready.
func (w *Worker) Start(ctx context.Context) error {
	if w.conn == nil {
		return ErrNoConnection
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.logger.Info("starting worker",
		"prefetch", w.prefetch,
		"max_attempts", w.retry.MaxAttempts,
	)

	w.consumer = mq.NewConsumer(w.conn, w.logger, mq.ConsumerConfig{
		Queue:    string(mq.QueueFormsReady),
		Handler:  w.handleFormReady,
		Prefetch: w.prefetch,
	})

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("form consumer error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if w.cancelFunc != nil {
		w.cancelFunc()
	}
	if w.consumer != nil {
		w.consumer.Stop()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}
