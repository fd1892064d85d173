package api

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
	"github.com/shaiso/Journey/internal/engine"
)

// Blueprint DTOs

// CreateBlueprintRequest — запрос на создание blueprint.
//
// Graph принимается в формате документа графа (nodes, edges, forms с
// field_schema) и разбирается engine.ParseGraph.
type CreateBlueprintRequest struct {
	Name        string                          `json:"name"`
	Description string                          `json:"description,omitempty"`
	Graph       json.RawMessage                 `json:"graph"`
	GlobalData  domain.GlobalData               `json:"global_data,omitempty"`
	WebhookURL  string                          `json:"webhook_url,omitempty"`
	Mappings    map[string]domain.FieldMappings `json:"mappings,omitempty"`
}

// UpdateBlueprintRequest — запрос на обновление blueprint.
type UpdateBlueprintRequest struct {
	Name        *string            `json:"name,omitempty"`
	Description *string            `json:"description,omitempty"`
	Graph       json.RawMessage    `json:"graph,omitempty"`
	GlobalData  *domain.GlobalData `json:"global_data,omitempty"`
	WebhookURL  *string            `json:"webhook_url,omitempty"`
}

// BlueprintResponse — ответ с blueprint.
// Graph и GlobalData заполняются только для одиночного blueprint.
type BlueprintResponse struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	WebhookURL  string                `json:"webhook_url,omitempty"`
	NodeCount   int                   `json:"node_count"`
	FormCount   int                   `json:"form_count"`
	Graph       *domain.WorkflowGraph `json:"graph,omitempty"`
	GlobalData  domain.GlobalData     `json:"global_data,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// BlueprintFromDomain конвертирует domain.Blueprint в BlueprintResponse.
func BlueprintFromDomain(bp *domain.Blueprint, detailed bool) BlueprintResponse {
	resp := BlueprintResponse{
		ID:          bp.ID,
		Name:        bp.Name,
		Description: bp.Description,
		WebhookURL:  bp.WebhookURL,
		NodeCount:   len(bp.Graph.Nodes),
		FormCount:   len(bp.Graph.Forms),
		CreatedAt:   bp.CreatedAt,
		UpdatedAt:   bp.UpdatedAt,
	}
	if detailed {
		graph := bp.Graph
		resp.Graph = &graph
		resp.GlobalData = bp.GlobalData
	}
	return resp
}

// Graph DTOs

// WalkResponse — результат обхода графа от узла.
type WalkResponse struct {
	NodeID     domain.NodeID `json:"node_id"`
	Direction  string        `json:"direction"`
	DirectOnly bool          `json:"direct_only"`
	Forms      []domain.Form `json:"forms"`
}

// Mapping DTOs

// MappingEntry — одна привязка с подписью источника.
type MappingEntry struct {
	NodeID      domain.NodeID        `json:"node_id"`
	FieldID     string               `json:"field_id"`
	Config      domain.PrefillConfig `json:"config"`
	Description string               `json:"description"`
}

// MappingsResponse — таблица привязок blueprint.
type MappingsResponse struct {
	BlueprintID uuid.UUID                  `json:"blueprint_id"`
	Table       domain.PrefillMappingTable `json:"table"`
	Entries     []MappingEntry             `json:"entries"`
}

// MappingsFromTable строит ответ с привязками, упорядоченными по узлу и полю.
func MappingsFromTable(blueprintID uuid.UUID, table domain.PrefillMappingTable, graph *engine.Graph) MappingsResponse {
	entries := make([]MappingEntry, 0)
	for nodeID, fields := range table {
		for fieldID, cfg := range fields {
			entries = append(entries, MappingEntry{
				NodeID:      nodeID,
				FieldID:     fieldID,
				Config:      cfg,
				Description: graph.DescribeMapping(cfg),
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].NodeID != entries[j].NodeID {
			return entries[i].NodeID < entries[j].NodeID
		}
		return entries[i].FieldID < entries[j].FieldID
	})

	return MappingsResponse{
		BlueprintID: blueprintID,
		Table:       table,
		Entries:     entries,
	}
}

// Resolve DTOs

// ResolveRequest — запрос на вычисление prefill-значения без состояния.
type ResolveRequest struct {
	Config      domain.PrefillConfig      `json:"config"`
	Submissions domain.FormSubmissionData `json:"submissions,omitempty"`
	GlobalData  domain.GlobalData         `json:"global_data,omitempty"`
}

// ResolveResponse — результат вычисления.
type ResolveResponse struct {
	Value      any    `json:"value"`
	Resolved   bool   `json:"resolved"`
	SourceKind string `json:"source_kind"`
}

// Journey DTOs

// SubmitFormRequest — отправка формы узла.
type SubmitFormRequest struct {
	NodeID domain.NodeID  `json:"node_id"`
	Data   map[string]any `json:"data"`
}

// JourneyResponse — ответ с journey.
type JourneyResponse struct {
	ID          uuid.UUID       `json:"id"`
	BlueprintID uuid.UUID       `json:"blueprint_id"`
	Status      string          `json:"status"`
	Submitted   []domain.NodeID `json:"submitted"`
	Ready       []domain.NodeID `json:"ready"`
	CreatedAt   time.Time       `json:"created_at"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// JourneyFromDomain конвертирует domain.Journey в JourneyResponse.
// Ready вычисляется по графу; для завершённого journey список пуст.
func JourneyFromDomain(j *domain.Journey, subs []domain.Submission, graph *engine.Graph) JourneyResponse {
	submitted := domain.SubmittedNodes(subs)

	resp := JourneyResponse{
		ID:          j.ID,
		BlueprintID: j.BlueprintID,
		Status:      string(j.Status),
		Submitted:   make([]domain.NodeID, 0, len(submitted)),
		Ready:       make([]domain.NodeID, 0),
		CreatedAt:   j.CreatedAt,
		FinishedAt:  j.FinishedAt,
	}

	for _, node := range graph.Nodes() {
		if submitted[node.ID] {
			resp.Submitted = append(resp.Submitted, node.ID)
		}
	}
	if !j.IsFinished() {
		resp.Ready = append(resp.Ready, graph.ReadyNodes(submitted)...)
	}
	return resp
}
