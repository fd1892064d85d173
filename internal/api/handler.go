package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/cache"
	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/telemetry"
)

// BlueprintStore — хранилище blueprints.
type BlueprintStore interface {
	Create(ctx context.Context, bp *domain.Blueprint) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Blueprint, error)
	GetByName(ctx context.Context, name string) (*domain.Blueprint, error)
	List(ctx context.Context) ([]domain.Blueprint, error)
	Update(ctx context.Context, bp *domain.Blueprint) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MappingStore — хранилище таблиц привязок.
type MappingStore interface {
	Get(ctx context.Context, blueprintID uuid.UUID) (domain.PrefillMappingTable, error)
	Put(ctx context.Context, blueprintID uuid.UUID, table domain.PrefillMappingTable) error
}

// JourneyStore — хранилище journeys.
type JourneyStore interface {
	Create(ctx context.Context, j *domain.Journey) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Journey, error)
	Update(ctx context.Context, j *domain.Journey) error
}

// SubmissionStore — хранилище отправок и вычисленных значений.
type SubmissionStore interface {
	Save(ctx context.Context, s *domain.Submission) error
	ListByJourney(ctx context.Context, journeyID uuid.UUID) ([]domain.Submission, error)
	ListPrefills(ctx context.Context, journeyID uuid.UUID) ([]domain.Prefill, error)
}

// ReportStore — последние отчёты аудита полноты.
type ReportStore interface {
	ListByBlueprint(ctx context.Context, blueprintID uuid.UUID) ([]domain.CompletenessReport, error)
}

// EventPublisher публикует события journey для orchestrator.
type EventPublisher interface {
	PublishJourneyStarted(ctx context.Context, journeyID, blueprintID uuid.UUID) error
	PublishSubmissionReceived(ctx context.Context, journeyID uuid.UUID, nodeID domain.NodeID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	blueprints  BlueprintStore
	mappings    MappingStore
	journeys    JourneyStore
	submissions SubmissionStore
	reports     ReportStore
	publisher   EventPublisher
	cache       *cache.WalkCache
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Blueprints  BlueprintStore
	Mappings    MappingStore
	Journeys    JourneyStore
	Submissions SubmissionStore
	Reports     ReportStore

	// Publisher — nil, если RabbitMQ не настроен. Orchestrator тогда
	// подхватывает journeys через polling.
	Publisher EventPublisher

	// Cache — nil отключает кэш обходов.
	Cache *cache.WalkCache

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Handler{
		blueprints:  cfg.Blueprints,
		mappings:    cfg.Mappings,
		journeys:    cfg.Journeys,
		submissions: cfg.Submissions,
		reports:     cfg.Reports,
		publisher:   cfg.Publisher,
		cache:       cfg.Cache,
		logger:      cfg.Logger,
	}
}

// log возвращает логгер текущего запроса.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return telemetry.FromContext(r.Context(), h.logger)
}

// graphFor строит индекс графа blueprint.
func (h *Handler) graphFor(bp *domain.Blueprint) *engine.Graph {
	return engine.NewGraph(&bp.Graph, engine.WithLogger(telemetry.WithBlueprintID(h.logger, bp.ID.String())))
}

// loadMappings возвращает нормализованную таблицу привязок blueprint.
func (h *Handler) loadMappings(ctx context.Context, bp *domain.Blueprint, graph *engine.Graph) (domain.PrefillMappingTable, error) {
	table, err := h.mappings.Get(ctx, bp.ID)
	if err != nil {
		return nil, err
	}
	return graph.NormalizeMappings(rawMappings(table)), nil
}

func rawMappings(table domain.PrefillMappingTable) map[string]domain.FieldMappings {
	raw := make(map[string]domain.FieldMappings, len(table))
	for key, fields := range table {
		raw[string(key)] = fields
	}
	return raw
}
