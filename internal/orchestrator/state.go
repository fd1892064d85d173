package orchestrator

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/telemetry"
)

// JourneyState — состояние прохождения одного journey в памяти.
//
// Создаётся при первом событии journey и удаляется, когда journey
// завершён или отменён. Граф перестраивается только при изменении
// blueprint (UpdatedAt), таблица привязок и отправки заменяются при
// каждом обновлении.
//
// Содержит:
//   - Граф blueprint и нормализованную таблицу привязок
//   - Отправленные формы
//   - Узлы, о готовности которых уже сообщено
type JourneyState struct {
	Journey   *domain.Journey
	Blueprint *domain.Blueprint
	Graph     *engine.Graph

	mappings    domain.PrefillMappingTable
	submissions []domain.Submission
	submitted   map[domain.NodeID]bool
	notified    map[domain.NodeID]bool
	logger      *slog.Logger

	// advance сериализует продвижение одного journey
	advance sync.Mutex
	mu      sync.RWMutex
}

// NewJourneyState создаёт состояние journey.
func NewJourneyState(journey *domain.Journey, bp *domain.Blueprint, mappings domain.PrefillMappingTable, logger *slog.Logger) *JourneyState {
	if logger == nil {
		logger = slog.Default()
	}
	s := &JourneyState{
		Journey:   journey,
		submitted: make(map[domain.NodeID]bool),
		notified:  make(map[domain.NodeID]bool),
		logger:    logger,
	}
	s.Refresh(bp, mappings)
	return s
}

// Refresh обновляет blueprint и таблицу привязок.
// Граф перестраивается, только если blueprint изменился.
func (s *JourneyState) Refresh(bp *domain.Blueprint, mappings domain.PrefillMappingTable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Graph == nil || s.Blueprint == nil || !s.Blueprint.UpdatedAt.Equal(bp.UpdatedAt) {
		s.Graph = engine.NewGraph(&bp.Graph, engine.WithLogger(s.logger))
	}
	s.Blueprint = bp

	raw := make(map[string]domain.FieldMappings, len(mappings))
	for key, fields := range mappings {
		raw[string(key)] = fields
	}
	s.mappings = s.Graph.NormalizeMappings(raw)
}

// SetSubmissions заменяет список отправок.
func (s *JourneyState) SetSubmissions(subs []domain.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.submissions = subs
	s.submitted = domain.SubmittedNodes(subs)
}

// PendingReady возвращает готовые к заполнению узлы, о которых ещё не сообщено.
func (s *JourneyState) PendingReady() []domain.NodeID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ready := s.Graph.ReadyNodes(s.submitted)
	pending := make([]domain.NodeID, 0, len(ready))
	for _, id := range ready {
		if !s.notified[id] {
			pending = append(pending, id)
		}
	}
	return pending
}

// MarkNotified помечает узел как объявленный готовым.
func (s *JourneyState) MarkNotified(id domain.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notified[id] = true
}

// IsNotified проверяет, объявлен ли узел готовым.
func (s *JourneyState) IsNotified(id domain.NodeID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.notified[id]
}

// ComputePrefills вычисляет prefill-значения привязанных полей узла.
//
// Поля без значения (источник не отправлен, путь не найден, значение
// ложное) в результат не попадают. Порядок — по ID поля.
func (s *JourneyState) ComputePrefills(id domain.NodeID, now time.Time) []domain.Prefill {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields := s.mappings[id]
	fieldIDs := make([]string, 0, len(fields))
	for fieldID := range fields {
		fieldIDs = append(fieldIDs, fieldID)
	}
	sort.Strings(fieldIDs)

	data := domain.SubmissionData(s.submissions)
	prefills := make([]domain.Prefill, 0, len(fieldIDs))

	for _, fieldID := range fieldIDs {
		cfg := fields[fieldID]
		if !cfg.IsMapped() {
			continue
		}

		value, ok := engine.ResolvePrefillValue(cfg, data, s.Blueprint.GlobalData)
		telemetry.ObserveResolution(cfg.SourceKind(), ok)
		if !ok {
			continue
		}

		prefills = append(prefills, domain.Prefill{
			JourneyID:  s.Journey.ID,
			NodeID:     id,
			FieldID:    fieldID,
			Value:      value,
			Source:     s.Graph.DescribeMapping(cfg),
			ComputedAt: now,
		})
	}

	return prefills
}

// IsComplete проверяет, все ли формы journey отправлены.
func (s *JourneyState) IsComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Graph.AllSubmitted(s.submitted)
}

// JourneyID возвращает ID journey.
func (s *JourneyState) JourneyID() uuid.UUID {
	return s.Journey.ID
}

// Stats возвращает статистику прохождения.
func (s *JourneyState) Stats() JourneyStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := s.Graph.Size()
	submitted := 0
	for _, node := range s.Graph.Nodes() {
		if s.submitted[node.ID] {
			submitted++
		}
	}

	return JourneyStats{
		TotalForms:     total,
		SubmittedForms: submitted,
		NotifiedForms:  len(s.notified),
		PendingForms:   total - submitted,
	}
}

// JourneyStats — статистика прохождения journey.
type JourneyStats struct {
	TotalForms     int
	SubmittedForms int
	NotifiedForms  int
	PendingForms   int
}
