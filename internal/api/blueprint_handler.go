package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/fixtures"
	"github.com/shaiso/Journey/internal/repo"
)

// SeedBlueprintName — имя blueprint, который создаёт seed.
const SeedBlueprintName = "onboard-customer-0"

// ListBlueprints возвращает список blueprints.
// GET /api/v1/blueprints
func (h *Handler) ListBlueprints(w http.ResponseWriter, r *http.Request) {
	blueprints, err := h.blueprints.List(r.Context())
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	result := make([]BlueprintResponse, len(blueprints))
	for i := range blueprints {
		result[i] = BlueprintFromDomain(&blueprints[i], false)
	}

	List(w, result, len(result))
}

// CreateBlueprint создаёт новый blueprint.
// POST /api/v1/blueprints
func (h *Handler) CreateBlueprint(w http.ResponseWriter, r *http.Request) {
	var req CreateBlueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}
	if len(req.Graph) == 0 {
		BadRequest(w, "graph is required")
		return
	}

	graph, err := parseGraph(req.Graph)
	if HandleInputError(w, err) {
		return
	}

	now := time.Now().UTC()
	bp := &domain.Blueprint{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Graph:       *graph,
		GlobalData:  req.GlobalData,
		WebhookURL:  req.WebhookURL,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.blueprints.Create(r.Context(), bp); err != nil {
		if errors.Is(err, repo.ErrAlreadyExists) {
			Conflict(w, "blueprint with this name already exists")
			return
		}
		InternalError(w, h.log(r), err)
		return
	}

	if len(req.Mappings) > 0 {
		table := h.graphFor(bp).NormalizeMappings(req.Mappings)
		if err := h.mappings.Put(r.Context(), bp.ID, table); err != nil {
			InternalError(w, h.log(r), err)
			return
		}
	}

	h.log(r).Info("blueprint created", "blueprint_id", bp.ID, "name", bp.Name)
	Created(w, BlueprintFromDomain(bp, true))
}

// GetBlueprint возвращает blueprint по ID.
// GET /api/v1/blueprints/{id}
func (h *Handler) GetBlueprint(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}
	Success(w, BlueprintFromDomain(bp, true))
}

// UpdateBlueprint обновляет blueprint.
// PUT /api/v1/blueprints/{id}
//
// Замена графа или глобальных данных меняет UpdatedAt, поэтому старые
// результаты обходов в кэше больше не читаются.
func (h *Handler) UpdateBlueprint(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateBlueprintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			BadRequest(w, "name cannot be empty")
			return
		}
		bp.Name = name
	}
	if req.Description != nil {
		bp.Description = *req.Description
	}
	if req.WebhookURL != nil {
		bp.WebhookURL = *req.WebhookURL
	}
	if req.GlobalData != nil {
		bp.GlobalData = *req.GlobalData
	}
	if len(req.Graph) > 0 {
		graph, err := parseGraph(req.Graph)
		if HandleInputError(w, err) {
			return
		}
		bp.Graph = *graph
	}
	bp.Touch()

	if err := h.blueprints.Update(r.Context(), bp); HandleRepoError(w, h.log(r), err, "blueprint not found") {
		return
	}

	if err := h.cache.Invalidate(r.Context(), bp.ID); err != nil {
		h.log(r).Warn("walk cache invalidation failed", "blueprint_id", bp.ID, "error", err)
	}

	Success(w, BlueprintFromDomain(bp, true))
}

// DeleteBlueprint удаляет blueprint.
// DELETE /api/v1/blueprints/{id}
func (h *Handler) DeleteBlueprint(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid blueprint id")
		return
	}

	if err := h.blueprints.Delete(r.Context(), id); HandleRepoError(w, h.log(r), err, "blueprint not found") {
		return
	}

	if err := h.cache.Invalidate(r.Context(), id); err != nil {
		h.log(r).Warn("walk cache invalidation failed", "blueprint_id", id, "error", err)
	}

	NoContent(w)
}

// SeedBlueprint создаёт встроенный blueprint "Onboard Customer 0" вместе
// с начальной таблицей привязок. Повторный вызов возвращает существующий.
// POST /api/v1/blueprints/seed
func (h *Handler) SeedBlueprint(w http.ResponseWriter, r *http.Request) {
	existing, err := h.blueprints.GetByName(r.Context(), SeedBlueprintName)
	if err == nil {
		Success(w, BlueprintFromDomain(existing, true))
		return
	}
	if !errors.Is(err, repo.ErrNotFound) {
		InternalError(w, h.log(r), err)
		return
	}

	graph := fixtures.OnboardCustomer()
	now := time.Now().UTC()
	bp := &domain.Blueprint{
		ID:          uuid.New(),
		Name:        SeedBlueprintName,
		Description: graph.Name,
		Graph:       *graph,
		GlobalData:  fixtures.GlobalData(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.blueprints.Create(r.Context(), bp); HandleRepoError(w, h.log(r), err, "") {
		return
	}

	table := h.graphFor(bp).NormalizeMappings(fixtures.InitialMappings())
	if err := h.mappings.Put(r.Context(), bp.ID, table); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	h.log(r).Info("blueprint seeded", "blueprint_id", bp.ID)
	Created(w, BlueprintFromDomain(bp, true))
}

// blueprintFromPath загружает blueprint по {id} из пути.
// При ошибке ответ уже отправлен.
func (h *Handler) blueprintFromPath(w http.ResponseWriter, r *http.Request) (*domain.Blueprint, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid blueprint id")
		return nil, false
	}

	bp, err := h.blueprints.GetByID(r.Context(), id)
	if HandleRepoError(w, h.log(r), err, "blueprint not found") {
		return nil, false
	}
	return bp, true
}

// parseGraph разбирает и проверяет документ графа.
func parseGraph(data []byte) (*domain.WorkflowGraph, error) {
	graph, err := engine.ParseGraph(data)
	if err != nil {
		return nil, err
	}
	if err := engine.Validate(graph); err != nil {
		return nil, err
	}
	return graph, nil
}
