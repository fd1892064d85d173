package orchestrator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/mq"
)

// Default configuration values.
const (
	defaultPollInterval = 10 * time.Second
	defaultBatchSize    = 100
)

// BlueprintStore — чтение blueprints.
type BlueprintStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Blueprint, error)
}

// MappingStore — чтение таблиц привязок.
type MappingStore interface {
	Get(ctx context.Context, blueprintID uuid.UUID) (domain.PrefillMappingTable, error)
}

// JourneyStore — чтение и обновление journeys.
type JourneyStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error)
	Update(ctx context.Context, j *domain.Journey) error
	ListInProgress(ctx context.Context, limit int) ([]domain.Journey, error)
}

// SubmissionStore — отправки форм и вычисленные значения.
type SubmissionStore interface {
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]domain.Submission, error)
	ReplacePrefills(ctx context.Context, journeyID uuid.UUID, nodeID domain.NodeID, prefills []domain.Prefill) error
}

// EventPublisher публикует события о готовых формах.
type EventPublisher interface {
	PublishFormReady(ctx context.Context, payload mq.FormReadyPayload) error
}

// Orchestrator продвигает journeys по графу форм.
//
// Orchestrator:
//   - Получает события journey.started и submission.received (event-driven)
//   - Периодически проверяет journeys в статусе IN_PROGRESS (polling fallback)
//   - Вычисляет prefill для готовых узлов и публикует form.ready
//   - Завершает journey, когда все формы отправлены
type Orchestrator struct {
	blueprints  BlueprintStore
	mappings    MappingStore
	journeys    JourneyStore
	submissions SubmissionStore

	publisher EventPublisher
	conn      *mq.Connection

	// Active journeys (journeyID → state)
	active map[uuid.UUID]*JourneyState
	mu     sync.RWMutex

	startedConsumer   *mq.Consumer
	submittedConsumer *mq.Consumer

	pollInterval time.Duration
	batchSize    int
	now          func() time.Time

	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Orchestrator.
type Config struct {
	Blueprints  BlueprintStore
	Mappings    MappingStore
	Journeys    JourneyStore
	Submissions SubmissionStore

	// Publisher — nil, если RabbitMQ недоступен.
	Publisher EventPublisher
	// Conn — nil в polling-only режиме.
	Conn *mq.Connection

	PollInterval time.Duration // интервал polling (default: 10s)
	BatchSize    int           // количество journeys за один poll (default: 100)

	Logger *slog.Logger
}

// New создаёт новый Orchestrator.
func New(cfg Config) *Orchestrator {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		blueprints:   cfg.Blueprints,
		mappings:     cfg.Mappings,
		journeys:     cfg.Journeys,
		submissions:  cfg.Submissions,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		active:       make(map[uuid.UUID]*JourneyState),
		pollInterval: pollInterval,
		batchSize:    batchSize,
		now:          time.Now,
		logger:       logger,
	}
}

// Start запускает Orchestrator.
//
// Запускает:
//   - Consumer для journeys.started и submissions.received (если есть соединение)
//   - Polling горутину для fallback
func (o *Orchestrator) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	o.cancelFunc = cancel

	o.logger.Info("starting orchestrator",
		"poll_interval", o.pollInterval,
		"batch_size", o.batchSize,
		"event_driven", o.conn != nil,
	)

	if o.conn != nil {
		o.startedConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueJourneysStarted),
			Handler:  o.handleJourneyStarted,
			Prefetch: 10,
		})
		o.submittedConsumer = mq.NewConsumer(o.conn, o.logger, mq.ConsumerConfig{
			Queue:    string(mq.QueueSubmissionsReceived),
			Handler:  o.handleSubmissionReceived,
			Prefetch: 10,
		})

		for _, c := range []*mq.Consumer{o.startedConsumer, o.submittedConsumer} {
			o.wg.Add(1)
			go func(c *mq.Consumer) {
				defer o.wg.Done()
				if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
					o.logger.Error("consumer error", "error", err)
				}
			}(c)
		}
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.pollLoop(ctx)
	}()

	o.logger.Info("orchestrator started")
	return nil
}

// Stop останавливает Orchestrator.
func (o *Orchestrator) Stop() {
	o.stoppedMu.Lock()
	o.stopped = true
	o.stoppedMu.Unlock()

	o.logger.Info("stopping orchestrator...")

	if o.cancelFunc != nil {
		o.cancelFunc()
	}
	if o.startedConsumer != nil {
		o.startedConsumer.Stop()
	}
	if o.submittedConsumer != nil {
		o.submittedConsumer.Stop()
	}

	o.wg.Wait()

	o.logger.Info("orchestrator stopped",
		"active_journeys", o.ActiveJourneysCount(),
	)
}

// IsStopped проверяет, остановлен ли Orchestrator.
func (o *Orchestrator) IsStopped() bool {
	o.stoppedMu.RLock()
	defer o.stoppedMu.RUnlock()
	return o.stopped
}

// pollLoop — цикл polling для fallback.
func (o *Orchestrator) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу при старте: подхватываем journeys, созданные пока были выключены
	o.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.poll(ctx)
		}
	}
}

// poll выполняет один цикл polling.
func (o *Orchestrator) poll(ctx context.Context) {
	journeys, err := o.journeys.ListInProgress(ctx, o.batchSize)
	if err != nil {
		o.logger.Error("failed to list journeys in progress", "error", err)
		return
	}

	// Полный список: всё, чего в нём нет, отменено или завершено в обход нас
	if len(journeys) < o.batchSize {
		o.prune(journeys)
	}

	if len(journeys) == 0 {
		return
	}

	o.logger.Debug("poll found journeys in progress", "count", len(journeys))

	for i := range journeys {
		if ctx.Err() != nil {
			return
		}
		if err := o.Advance(ctx, journeys[i].ID); err != nil {
			o.logger.Error("failed to advance journey from poll",
				"journey_id", journeys[i].ID,
				"error", err,
			)
		}
	}
}

// prune удаляет из памяти journeys, которых нет среди активных в БД.
func (o *Orchestrator) prune(inProgress []domain.Journey) {
	keep := make(map[uuid.UUID]bool, len(inProgress))
	for _, j := range inProgress {
		keep[j.ID] = true
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	for id := range o.active {
		if !keep[id] {
			delete(o.active, id)
		}
	}
}

func (o *Orchestrator) getActive(id uuid.UUID) *JourneyState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.active[id]
}

// addActive добавляет состояние; если кто-то успел раньше, возвращает существующее.
func (o *Orchestrator) addActive(state *JourneyState) *JourneyState {
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.active[state.JourneyID()]; ok {
		return existing
	}
	o.active[state.JourneyID()] = state
	return state
}

func (o *Orchestrator) removeActive(id uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.active, id)
}

// ActiveJourneysCount возвращает количество journeys в памяти.
func (o *Orchestrator) ActiveJourneysCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.active)
}

// GetActiveJourneyStats возвращает статистику по journey в памяти.
func (o *Orchestrator) GetActiveJourneyStats(id uuid.UUID) (JourneyStats, bool) {
	state := o.getActive(id)
	if state == nil {
		return JourneyStats{}, false
	}
	return state.Stats(), true
}
