package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/telemetry"
)

// BlueprintLister — чтение всех blueprints.
type BlueprintLister interface {
	List(ctx context.Context) ([]domain.Blueprint, error)
}

// MappingStore — чтение таблиц привязок.
type MappingStore interface {
	Get(ctx context.Context, blueprintID uuid.UUID) (domain.PrefillMappingTable, error)
}

// ReportStore — запись отчётов аудита.
type ReportStore interface {
	Replace(ctx context.Context, blueprintID uuid.UUID, reports []domain.CompletenessReport) error
}

// LeaderLock — блокировка, которую держит единственный активный scheduler.
type LeaderLock interface {
	TryLock(ctx context.Context) (bool, error)
}

// Scheduler периодически проверяет полноту привязок всех blueprints.
//
// Для каждого blueprint:
//  1. Строит граф и нормализует таблицу привязок
//  2. Находит узлы с непривязанными обязательными полями
//  3. Заменяет отчёт в БД и обновляет gauge journey_incomplete_forms
type Scheduler struct {
	blueprints BlueprintLister
	mappings   MappingStore
	reports    ReportStore
	lock       LeaderLock
	logger     *slog.Logger
	spec       string
	now        func() time.Time

	cron *cron.Cron
	mu   sync.Mutex
}

// Config — конфигурация Scheduler.
type Config struct {
	Blueprints BlueprintLister
	Mappings   MappingStore
	Reports    ReportStore

	// Lock — опционально; без неё аудит выполняет каждый экземпляр.
	Lock LeaderLock

	// Spec — cron-выражение аудита (default: DefaultAuditSpec).
	Spec string

	Logger *slog.Logger
}

// New создаёт новый Scheduler.
func New(cfg Config) (*Scheduler, error) {
	spec := cfg.Spec
	if spec == "" {
		spec = DefaultAuditSpec
	}
	if err := ValidateCronExpr(spec); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		blueprints: cfg.Blueprints,
		mappings:   cfg.Mappings,
		reports:    cfg.Reports,
		lock:       cfg.Lock,
		logger:     logger,
		spec:       spec,
		now:        time.Now,
	}, nil
}

// Start запускает аудит по расписанию.
// Перекрывающиеся запуски пропускаются.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := cronLogger{logger: s.logger}
	s.cron = cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	_, err := s.cron.AddFunc(s.spec, func() {
		if err := s.Tick(ctx); err != nil {
			s.logger.Error("audit tick failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule audit: %w", err)
	}

	s.cron.Start()

	next, _ := NextRun(s.spec, s.now())
	s.logger.Info("scheduler started", "spec", s.spec, "next_run", next)
	return nil
}

// Stop останавливает расписание и ждёт текущий аудит.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	c := s.cron
	s.mu.Unlock()

	if c == nil {
		return
	}
	<-c.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Tick выполняет аудит, если этот экземпляр — лидер.
func (s *Scheduler) Tick(ctx context.Context) error {
	if s.lock != nil {
		leader, err := s.lock.TryLock(ctx)
		if err != nil {
			return fmt.Errorf("acquire leader lock: %w", err)
		}
		if !leader {
			s.logger.Debug("not a leader, skipping audit")
			return nil
		}
	}
	return s.Audit(ctx)
}

// Audit проверяет все blueprints.
// Ошибка одного blueprint не блокирует остальные.
func (s *Scheduler) Audit(ctx context.Context) error {
	blueprints, err := s.blueprints.List(ctx)
	if err != nil {
		return fmt.Errorf("list blueprints: %w", err)
	}

	var audited, incomplete int
	for i := range blueprints {
		bp := &blueprints[i]

		n, err := s.AuditBlueprint(ctx, bp)
		if err != nil {
			s.logger.Error("failed to audit blueprint",
				"blueprint_id", bp.ID,
				"blueprint_name", bp.Name,
				"error", err,
			)
			continue
		}

		audited++
		incomplete += n
	}

	s.logger.Info("audit completed",
		"blueprints", len(blueprints),
		"audited", audited,
		"incomplete_forms", incomplete,
	)
	return nil
}

// AuditBlueprint проверяет один blueprint и возвращает число неполных узлов.
func (s *Scheduler) AuditBlueprint(ctx context.Context, bp *domain.Blueprint) (int, error) {
	table, err := s.mappings.Get(ctx, bp.ID)
	if err != nil {
		return 0, fmt.Errorf("get mappings: %w", err)
	}

	reports := BuildReports(bp, table, s.logger, s.now().UTC())

	incomplete := 0
	for _, rep := range reports {
		if !rep.Complete {
			incomplete++
		}
	}

	if err := s.reports.Replace(ctx, bp.ID, reports); err != nil {
		return 0, fmt.Errorf("save reports: %w", err)
	}

	telemetry.IncompleteForms.WithLabelValues(bp.ID.String()).Set(float64(incomplete))
	return incomplete, nil
}

// BuildReports строит отчёт полноты привязок blueprint.
func BuildReports(bp *domain.Blueprint, table domain.PrefillMappingTable, logger *slog.Logger, checkedAt time.Time) []domain.CompletenessReport {
	graph := engine.NewGraph(&bp.Graph, engine.WithLogger(logger))

	raw := make(map[string]domain.FieldMappings, len(table))
	for key, fields := range table {
		raw[string(key)] = fields
	}
	normalized := graph.NormalizeMappings(raw)

	completeness := graph.Completeness(normalized)
	reports := make([]domain.CompletenessReport, 0, len(completeness))
	for _, c := range completeness {
		reports = append(reports, domain.CompletenessReport{
			BlueprintID: bp.ID,
			NodeID:      c.NodeID,
			FormName:    c.FormName,
			Required:    c.Required,
			Missing:     c.Missing,
			Complete:    c.Complete,
			CheckedAt:   checkedAt,
		})
	}
	return reports
}
