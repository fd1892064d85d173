package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Logging снаружи: он видит 500 после Recovery, а Recovery
	// получает логгер запроса из контекста.
	chain := Chain(
		Logging(h.logger),
		Recovery(h.logger),
		Metrics(),
	)

	// Blueprints
	mux.Handle("GET /api/v1/blueprints", chain(http.HandlerFunc(h.ListBlueprints)))
	mux.Handle("POST /api/v1/blueprints", chain(http.HandlerFunc(h.CreateBlueprint)))
	mux.Handle("POST /api/v1/blueprints/seed", chain(http.HandlerFunc(h.SeedBlueprint)))
	mux.Handle("GET /api/v1/blueprints/{id}", chain(http.HandlerFunc(h.GetBlueprint)))
	mux.Handle("PUT /api/v1/blueprints/{id}", chain(http.HandlerFunc(h.UpdateBlueprint)))
	mux.Handle("DELETE /api/v1/blueprints/{id}", chain(http.HandlerFunc(h.DeleteBlueprint)))

	// Graph queries
	mux.Handle("GET /api/v1/blueprints/{id}/nodes/{node}/upstream", chain(http.HandlerFunc(h.Upstream)))
	mux.Handle("GET /api/v1/blueprints/{id}/nodes/{node}/downstream", chain(http.HandlerFunc(h.Downstream)))
	mux.Handle("GET /api/v1/blueprints/{id}/nodes/{node}/candidates", chain(http.HandlerFunc(h.Candidates)))
	mux.Handle("GET /api/v1/blueprints/{id}/global-options", chain(http.HandlerFunc(h.GlobalOptions)))

	// Mappings
	mux.Handle("GET /api/v1/blueprints/{id}/mappings", chain(http.HandlerFunc(h.GetMappings)))
	mux.Handle("PUT /api/v1/blueprints/{id}/mappings/{node}/{field}", chain(http.HandlerFunc(h.SetMapping)))
	mux.Handle("DELETE /api/v1/blueprints/{id}/mappings/{node}/{field}", chain(http.HandlerFunc(h.DeleteMapping)))
	mux.Handle("GET /api/v1/blueprints/{id}/completeness", chain(http.HandlerFunc(h.Completeness)))
	mux.Handle("GET /api/v1/blueprints/{id}/reports", chain(http.HandlerFunc(h.Reports)))

	// Resolution
	mux.Handle("POST /api/v1/resolve", chain(http.HandlerFunc(h.Resolve)))

	// Journeys
	mux.Handle("POST /api/v1/blueprints/{id}/journeys", chain(http.HandlerFunc(h.CreateJourney)))
	mux.Handle("GET /api/v1/journeys/{id}", chain(http.HandlerFunc(h.GetJourney)))
	mux.Handle("POST /api/v1/journeys/{id}/submissions", chain(http.HandlerFunc(h.SubmitForm)))
	mux.Handle("GET /api/v1/journeys/{id}/prefills", chain(http.HandlerFunc(h.ListPrefills)))
	mux.Handle("POST /api/v1/journeys/{id}/cancel", chain(http.HandlerFunc(h.CancelJourney)))
}
