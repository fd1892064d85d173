package orchestrator

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/fixtures"
)

func newFixtureState(t *testing.T, mappings domain.PrefillMappingTable) *JourneyState {
	t.Helper()

	bp := &domain.Blueprint{
		ID:         uuid.New(),
		Graph:      *fixtures.OnboardCustomer(),
		GlobalData: fixtures.GlobalData(),
		UpdatedAt:  time.Date(2025, 2, 4, 12, 0, 0, 0, time.UTC),
	}
	journey := &domain.Journey{ID: uuid.New(), BlueprintID: bp.ID, Status: domain.JourneyStatusInProgress}
	return NewJourneyState(journey, bp, mappings, quietLogger())
}

func TestJourneyState_FormKeyedMappingsNormalized(t *testing.T) {
	// Привязка записана по FormID узла D, источник указан узлом A
	mappings := domain.PrefillMappingTable{
		domain.NodeID(fixtures.FormD): {
			"email": {SourceFormID: domain.FormID(fixtures.NodeA), SourceFieldID: "email"},
		},
	}
	state := newFixtureState(t, mappings)
	state.SetSubmissions([]domain.Submission{
		{NodeID: fixtures.NodeA, FormID: fixtures.FormA, Data: map[string]any{"email": "a@acme.com"}},
	})

	prefills := state.ComputePrefills(fixtures.NodeD, time.Now())
	if len(prefills) != 1 || prefills[0].Value != "a@acme.com" {
		t.Errorf("expected email prefilled from A, got %+v", prefills)
	}
}

func TestJourneyState_PendingReady(t *testing.T) {
	state := newFixtureState(t, nil)

	if got := state.PendingReady(); !equalNodes(got, []domain.NodeID{fixtures.NodeA}) {
		t.Errorf("expected [A], got %v", got)
	}

	state.MarkNotified(fixtures.NodeA)
	if got := state.PendingReady(); len(got) != 0 {
		t.Errorf("notified node should not be pending, got %v", got)
	}

	state.SetSubmissions([]domain.Submission{{NodeID: fixtures.NodeA, FormID: fixtures.FormA}})
	want := []domain.NodeID{fixtures.NodeC, fixtures.NodeB}
	if got := state.PendingReady(); !equalNodes(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestJourneyState_RefreshKeepsGraphForSameVersion(t *testing.T) {
	state := newFixtureState(t, nil)
	graph := state.Graph

	same := *state.Blueprint
	state.Refresh(&same, nil)
	if state.Graph != graph {
		t.Error("graph should be reused for unchanged blueprint")
	}

	updated := *state.Blueprint
	updated.UpdatedAt = updated.UpdatedAt.Add(time.Minute)
	state.Refresh(&updated, nil)
	if state.Graph == graph {
		t.Error("graph should be rebuilt after blueprint update")
	}
}

func TestJourneyState_IsComplete(t *testing.T) {
	state := newFixtureState(t, nil)

	var subs []domain.Submission
	for _, node := range []domain.NodeID{fixtures.NodeA, fixtures.NodeB, fixtures.NodeC} {
		subs = append(subs, domain.Submission{NodeID: node})
	}
	state.SetSubmissions(subs)
	if state.IsComplete() {
		t.Error("journey with D pending should not be complete")
	}

	state.SetSubmissions(append(subs, domain.Submission{NodeID: fixtures.NodeD}))
	if !state.IsComplete() {
		t.Error("journey with all forms submitted should be complete")
	}
}
