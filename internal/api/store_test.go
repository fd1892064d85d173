package api

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/repo"
)

// --- In-memory stores ---

type memStore struct {
	mu          sync.Mutex
	blueprints  map[uuid.UUID]*domain.Blueprint
	mappings    map[uuid.UUID]domain.PrefillMappingTable
	journeys    map[uuid.UUID]*domain.Journey
	submissions map[uuid.UUID][]domain.Submission
	prefills    map[uuid.UUID][]domain.Prefill
	reports     map[uuid.UUID][]domain.CompletenessReport
}

func newMemStore() *memStore {
	return &memStore{
		blueprints:  make(map[uuid.UUID]*domain.Blueprint),
		mappings:    make(map[uuid.UUID]domain.PrefillMappingTable),
		journeys:    make(map[uuid.UUID]*domain.Journey),
		submissions: make(map[uuid.UUID][]domain.Submission),
		prefills:    make(map[uuid.UUID][]domain.Prefill),
		reports:     make(map[uuid.UUID][]domain.CompletenessReport),
	}
}

type blueprintStore struct{ *memStore }

func (s blueprintStore) Create(_ context.Context, bp *domain.Blueprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.blueprints {
		if existing.Name == bp.Name {
			return repo.ErrAlreadyExists
		}
	}
	copied := *bp
	s.blueprints[bp.ID] = &copied
	return nil
}

func (s blueprintStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Blueprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bp, ok := s.blueprints[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *bp
	return &copied, nil
}

func (s blueprintStore) GetByName(_ context.Context, name string) (*domain.Blueprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, bp := range s.blueprints {
		if bp.Name == name {
			copied := *bp
			return &copied, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (s blueprintStore) List(_ context.Context) ([]domain.Blueprint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]domain.Blueprint, 0, len(s.blueprints))
	for _, bp := range s.blueprints {
		result = append(result, *bp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

func (s blueprintStore) Update(_ context.Context, bp *domain.Blueprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blueprints[bp.ID]; !ok {
		return repo.ErrNotFound
	}
	for id, existing := range s.blueprints {
		if id != bp.ID && existing.Name == bp.Name {
			return repo.ErrAlreadyExists
		}
	}
	copied := *bp
	s.blueprints[bp.ID] = &copied
	return nil
}

func (s blueprintStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blueprints[id]; !ok {
		return repo.ErrNotFound
	}
	delete(s.blueprints, id)
	delete(s.mappings, id)
	return nil
}

type mappingStore struct{ *memStore }

func (s mappingStore) Get(_ context.Context, blueprintID uuid.UUID) (domain.PrefillMappingTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	table := s.mappings[blueprintID].Clone()
	if table == nil {
		table = domain.PrefillMappingTable{}
	}
	return table, nil
}

func (s mappingStore) Put(_ context.Context, blueprintID uuid.UUID, table domain.PrefillMappingTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings[blueprintID] = table.Clone()
	return nil
}

type journeyStore struct{ *memStore }

func (s journeyStore) Create(_ context.Context, j *domain.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *j
	s.journeys[j.ID] = &copied
	return nil
}

func (s journeyStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Journey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.journeys[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	copied := *j
	return &copied, nil
}

func (s journeyStore) Update(_ context.Context, j *domain.Journey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.journeys[j.ID]
	if !ok {
		return repo.ErrNotFound
	}
	if stored.Status != domain.JourneyStatusInProgress {
		return repo.ErrInvalidState
	}
	copied := *j
	s.journeys[j.ID] = &copied
	return nil
}

type submissionStore struct{ *memStore }

func (s submissionStore) Save(_ context.Context, sub *domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	subs := s.submissions[sub.JourneyID]
	for i := range subs {
		if subs[i].NodeID == sub.NodeID {
			subs[i] = *sub
			return nil
		}
	}
	s.submissions[sub.JourneyID] = append(subs, *sub)
	return nil
}

func (s submissionStore) ListByJourney(_ context.Context, journeyID uuid.UUID) ([]domain.Submission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Submission(nil), s.submissions[journeyID]...), nil
}

func (s submissionStore) ListPrefills(_ context.Context, journeyID uuid.UUID) ([]domain.Prefill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Prefill(nil), s.prefills[journeyID]...), nil
}

type reportStore struct{ *memStore }

func (s reportStore) ListByBlueprint(_ context.Context, blueprintID uuid.UUID) ([]domain.CompletenessReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reports[blueprintID], nil
}

// --- Publisher ---

type publishedEvent struct {
	Type      string
	JourneyID uuid.UUID
	NodeID    domain.NodeID
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) PublishJourneyStarted(_ context.Context, journeyID, _ uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: "journey.started", JourneyID: journeyID})
	return nil
}

func (p *recordingPublisher) PublishSubmissionReceived(_ context.Context, journeyID uuid.UUID, nodeID domain.NodeID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: "submission.received", JourneyID: journeyID, NodeID: nodeID})
	return nil
}

func (p *recordingPublisher) Events() []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedEvent(nil), p.events...)
}
