package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/telemetry"
)

// Resolve вычисляет prefill-значение по привязке, отправкам и глобальным данным.
// POST /api/v1/resolve
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	value, ok := engine.ResolvePrefillValue(req.Config, req.Submissions, req.GlobalData)
	telemetry.ObserveResolution(req.Config.SourceKind(), ok)

	Success(w, ResolveResponse{
		Value:      value,
		Resolved:   ok,
		SourceKind: req.Config.SourceKind(),
	})
}

// CreateJourney запускает journey по blueprint.
// POST /api/v1/blueprints/{id}/journeys
func (h *Handler) CreateJourney(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	journey := &domain.Journey{
		ID:          uuid.New(),
		BlueprintID: bp.ID,
		Status:      domain.JourneyStatusInProgress,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.journeys.Create(r.Context(), journey); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	// Без публикации journey всё равно подхватит polling orchestrator
	if h.publisher != nil {
		if err := h.publisher.PublishJourneyStarted(r.Context(), journey.ID, bp.ID); err != nil {
			h.log(r).Warn("failed to publish journey started", "journey_id", journey.ID, "error", err)
		}
	}

	h.log(r).Info("journey created", "journey_id", journey.ID, "blueprint_id", bp.ID)
	Created(w, JourneyFromDomain(journey, nil, h.graphFor(bp)))
}

// GetJourney возвращает journey с отправленными и готовыми узлами.
// GET /api/v1/journeys/{id}
func (h *Handler) GetJourney(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.journeyFromPath(w, r)
	if !ok {
		return
	}

	bp, err := h.blueprints.GetByID(r.Context(), journey.BlueprintID)
	if HandleRepoError(w, h.log(r), err, "blueprint not found") {
		return
	}

	subs, err := h.submissions.ListByJourney(r.Context(), journey.ID)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	Success(w, JourneyFromDomain(journey, subs, h.graphFor(bp)))
}

// SubmitForm сохраняет отправку формы узла.
// POST /api/v1/journeys/{id}/submissions
//
// Узел принимается, только если все его зависимости уже отправлены.
// Повторная отправка узла заменяет данные.
func (h *Handler) SubmitForm(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.journeyFromPath(w, r)
	if !ok {
		return
	}

	var req SubmitFormRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}
	if req.NodeID == "" {
		BadRequest(w, "node_id is required")
		return
	}
	if req.Data == nil {
		req.Data = map[string]any{}
	}

	if journey.IsFinished() {
		InvalidState(w, "journey is "+string(journey.Status))
		return
	}

	bp, err := h.blueprints.GetByID(r.Context(), journey.BlueprintID)
	if HandleRepoError(w, h.log(r), err, "blueprint not found") {
		return
	}
	graph := h.graphFor(bp)

	formID, ok := graph.FormIDForNode(req.NodeID)
	if !ok {
		if _, exists := graph.Node(req.NodeID); exists {
			BadRequest(w, "node has no form")
			return
		}
		NotFound(w, "node not found")
		return
	}

	subs, err := h.submissions.ListByJourney(r.Context(), journey.ID)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}
	submitted := domain.SubmittedNodes(subs)
	if !submitted[req.NodeID] && !isReady(graph, submitted, req.NodeID) {
		InvalidState(w, "node dependencies are not submitted yet")
		return
	}

	sub := &domain.Submission{
		JourneyID:   journey.ID,
		NodeID:      req.NodeID,
		FormID:      formID,
		Data:        req.Data,
		SubmittedAt: time.Now().UTC(),
	}
	if err := h.submissions.Save(r.Context(), sub); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	h.publishSubmission(r.Context(), journey.ID, req.NodeID)

	Created(w, sub)
}

// ListPrefills возвращает вычисленные prefill-значения journey.
// GET /api/v1/journeys/{id}/prefills
func (h *Handler) ListPrefills(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.journeyFromPath(w, r)
	if !ok {
		return
	}

	prefills, err := h.submissions.ListPrefills(r.Context(), journey.ID)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}
	if prefills == nil {
		prefills = []domain.Prefill{}
	}

	List(w, prefills, len(prefills))
}

// CancelJourney отменяет journey.
// POST /api/v1/journeys/{id}/cancel
func (h *Handler) CancelJourney(w http.ResponseWriter, r *http.Request) {
	journey, ok := h.journeyFromPath(w, r)
	if !ok {
		return
	}

	if journey.IsFinished() {
		InvalidState(w, "journey is already finished")
		return
	}

	journey.MarkCancelled()
	if err := h.journeys.Update(r.Context(), journey); HandleRepoError(w, h.log(r), err, "journey not found") {
		return
	}

	h.log(r).Info("journey cancelled", "journey_id", journey.ID)
	Success(w, map[string]any{
		"id":     journey.ID,
		"status": journey.Status,
	})
}

// journeyFromPath загружает journey по {id} из пути.
func (h *Handler) journeyFromPath(w http.ResponseWriter, r *http.Request) (*domain.Journey, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid journey id")
		return nil, false
	}

	journey, err := h.journeys.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "journey not found") {
		return nil, false
	}
	return journey, true
}

func (h *Handler) publishSubmission(ctx context.Context, journeyID uuid.UUID, nodeID domain.NodeID) {
	if h.publisher == nil {
		return
	}
	if err := h.publisher.PublishSubmissionReceived(ctx, journeyID, nodeID); err != nil {
		telemetry.FromContext(ctx, h.logger).Warn("failed to publish submission",
			"journey_id", journeyID,
			"node_id", nodeID,
			"error", err,
		)
	}
}

func isReady(graph *engine.Graph, submitted map[domain.NodeID]bool, node domain.NodeID) bool {
	for _, id := range graph.ReadyNodes(submitted) {
		if id == node {
			return true
		}
	}
	return false
}
