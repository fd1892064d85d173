package api

import (
	"net/http"
	"strconv"

	"github.com/shaiso/Journey/internal/cache"
	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
	"github.com/shaiso/Journey/internal/telemetry"
)

// Upstream возвращает формы выше узла по рёбрам графа.
// GET /api/v1/blueprints/{id}/nodes/{node}/upstream?direct=true|false
func (h *Handler) Upstream(w http.ResponseWriter, r *http.Request) {
	h.walk(w, r, cache.DirectionUpstream)
}

// Downstream возвращает формы ниже узла по рёбрам графа.
// GET /api/v1/blueprints/{id}/nodes/{node}/downstream?direct=true|false
func (h *Handler) Downstream(w http.ResponseWriter, r *http.Request) {
	h.walk(w, r, cache.DirectionDownstream)
}

func (h *Handler) walk(w http.ResponseWriter, r *http.Request, direction string) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	directOnly := false
	if raw := r.URL.Query().Get("direct"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			BadRequest(w, "invalid direct parameter")
			return
		}
		directOnly = v
	}

	graph := h.graphFor(bp)
	node := domain.NodeID(r.PathValue("node"))
	if _, ok := graph.Node(node); !ok {
		NotFound(w, "node not found")
		return
	}

	key := cache.Key{
		BlueprintID: bp.ID,
		Version:     bp.UpdatedAt,
		Node:        node,
		Direction:   direction,
		DirectOnly:  directOnly,
	}
	forms := h.cache.Forms(r.Context(), key, func() []domain.Form {
		if direction == cache.DirectionDownstream {
			return graph.Downstream(node, directOnly)
		}
		return graph.Upstream(node, directOnly)
	})
	telemetry.ObserveWalk(direction, directOnly)

	Success(w, WalkResponse{
		NodeID:     node,
		Direction:  direction,
		DirectOnly: directOnly,
		Forms:      forms,
	})
}

// Candidates возвращает формы, из которых можно предзаполнить поля узла.
// GET /api/v1/blueprints/{id}/nodes/{node}/candidates
func (h *Handler) Candidates(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	graph := h.graphFor(bp)
	node := domain.NodeID(r.PathValue("node"))
	if _, ok := graph.Node(node); !ok {
		NotFound(w, "node not found")
		return
	}

	key := cache.Key{
		BlueprintID: bp.ID,
		Version:     bp.UpdatedAt,
		Node:        node,
		Direction:   cache.DirectionCandidates,
	}
	candidates := cache.Lookup(r.Context(), h.cache, key, func() []engine.SourceCandidate {
		return graph.SourceCandidates(node)
	})
	telemetry.ObserveWalk(cache.DirectionCandidates, false)

	List(w, candidates, len(candidates))
}

// GlobalOptions возвращает выбираемые пути глобальных данных.
// GET /api/v1/blueprints/{id}/global-options
func (h *Handler) GlobalOptions(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	options := engine.GlobalDataOptions(bp.GlobalData)
	List(w, options, len(options))
}

// Completeness проверяет полноту привязок по текущей таблице.
// GET /api/v1/blueprints/{id}/completeness
func (h *Handler) Completeness(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	graph := h.graphFor(bp)
	table, err := h.loadMappings(r.Context(), bp, graph)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}

	result := graph.Completeness(table)
	List(w, result, len(result))
}

// Reports возвращает последний отчёт периодического аудита.
// GET /api/v1/blueprints/{id}/reports
func (h *Handler) Reports(w http.ResponseWriter, r *http.Request) {
	bp, ok := h.blueprintFromPath(w, r)
	if !ok {
		return
	}

	reports, err := h.reports.ListByBlueprint(r.Context(), bp.ID)
	if HandleRepoError(w, h.log(r), err, "") {
		return
	}
	if reports == nil {
		reports = []domain.CompletenessReport{}
	}

	List(w, reports, len(reports))
}
