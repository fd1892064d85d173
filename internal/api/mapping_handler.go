package api

import (
	"encoding/json"
	"net/http"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/session"
)

// GetMappings возвращает таблицу привязок blueprint.
// GET /api/v1/blueprints/{id}/mappings
func (h *Handler) GetMappings(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	graph := h.graphFor(bp)
	table, err := h.loadMappings(r.Context(), bp, graph)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	Success(w, MappingsFromTable(bp.ID, table, graph))
}

// SetMapping задаёт привязку поля узла.
// PUT /api/v1/blueprints/{id}/mappings/{node}/{field}
func (h *Handler) SetMapping(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	var cfg domain.PrefillConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	graph := h.graphFor(bp)
	node := domain.NodeID(r.PathValue("node"))
	fieldID := r.PathValue("field")
	if !h.checkTarget(w, graph, node, fieldID) {
		return
	}
	if cfg.IsFormSource() && graph.DescribeMapping(cfg) == engine.InvalidMapping {
		BadRequest(w, "mapping source not found")
		return
	}

	table, err := h.loadMappings(r.Context(), bp, graph)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	h.applyEdit(w, r, bp, graph, table, session.SetMapping{
		NodeID:  node,
		FieldID: fieldID,
		Config:  cfg,
	})
}

// DeleteMapping удаляет привязку поля узла.
// DELETE /api/v1/blueprints/{id}/mappings/{node}/{field}
func (h *Handler) DeleteMapping(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	graph := h.graphFor(bp)
	node := domain.NodeID(r.PathValue("node"))
	fieldID := r.PathValue("field")

	table, err := h.loadMappings(r.Context(), bp, graph)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}
	if _, ok := table.Lookup(node, fieldID); !ok {
		NotFound(w, "mapping not found")
		return
	}

	h.applyEdit(w, r, bp, graph, table, session.RemoveMapping{
		NodeID:  node,
		FieldID: fieldID,
	})
}

// applyEdit применяет изменение к сохранённой таблице и записывает результат.
func (h *Handler) applyEdit(w http.ResponseWriter, r *http.Request, bp *domain.Blueprint, graph *engine.Graph, table domain.PrefillMappingTable, edit session.Edit) {
	state, err := session.Apply(session.New(bp.ID.String(), table), edit)
	if HandleInputError(w, err) {
		return
	}
	if err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	// Источник, заданный ID узла, переписывается на FormID
	next := graph.NormalizeMappings(rawMappings(state.Mappings))
	if err := h.mappings.Put(r.Context(), bp.ID, next); err != nil {
		InternalError(w, h.log(r), err)
		return
	}

	Success(w, MappingsFromTable(bp.ID, next, graph))
}

// checkTarget проверяет, что узел существует и у его формы есть поле.
func (h *Handler) checkTarget(w http.ResponseWriter, graph *engine.Graph, node domain.NodeID, fieldID string) bool {
	form, ok := graph.FormForNode(node)
	if !ok {
		if _, exists := graph.Node(node); exists {
			BadRequest(w, "node has no form")
			return false
		}
		NotFound(w, "node not found")
		return false
	}

	if _, ok := form.Field(fieldID); !ok {
		NotFound(w, "field not found")
		return false
	}
	return true
}
