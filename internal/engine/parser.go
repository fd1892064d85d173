package engine

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/shaiso/Journey/internal/domain"
)

// rawGraph — документ графа в том виде, в котором его отдаёт внешний API.
// Отличается от domain.WorkflowGraph только формами: они могут нести
// field_schema вместо готового списка полей.
type rawGraph struct {
	ID          string        `mapstructure:"id"`
	Name        string        `mapstructure:"name"`
	Description string        `mapstructure:"description"`
	Nodes       []domain.Node `mapstructure:"nodes"`
	Edges       []domain.Edge `mapstructure:"edges"`
	Forms       []rawForm     `mapstructure:"forms"`
}

type rawForm struct {
	ID          domain.FormID            `mapstructure:"id"`
	Name        string                   `mapstructure:"name"`
	Description string                   `mapstructure:"description"`
	Fields      []domain.FieldDefinition `mapstructure:"fields"`
	FieldSchema *rawFieldSchema          `mapstructure:"field_schema"`
}

// rawFieldSchema — JSON-schema описание полей формы.
type rawFieldSchema struct {
	Properties map[string]rawProperty `mapstructure:"properties"`
	Required   []string               `mapstructure:"required"`
}

type rawProperty struct {
	Type        string `mapstructure:"type"`
	AvantosType string `mapstructure:"avantos_type"`
	Title       string `mapstructure:"title"`
}

// ParseGraph разбирает WorkflowGraph из JSON.
func ParseGraph(data []byte) (*domain.WorkflowGraph, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return decodeGraph(doc)
}

// ParseGraphYAML разбирает WorkflowGraph из YAML.
// Структура документа та же, что у JSON.
func ParseGraphYAML(data []byte) (*domain.WorkflowGraph, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return decodeGraph(doc)
}

// decodeGraph раскладывает документ в domain-типы через mapstructure.
func decodeGraph(doc map[string]any) (*domain.WorkflowGraph, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrParse)
	}

	var raw rawGraph
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &raw,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	graph := &domain.WorkflowGraph{
		ID:          raw.ID,
		Name:        raw.Name,
		Description: raw.Description,
		Nodes:       raw.Nodes,
		Edges:       raw.Edges,
		Forms:       make([]domain.Form, 0, len(raw.Forms)),
	}
	if graph.Nodes == nil {
		graph.Nodes = []domain.Node{}
	}
	if graph.Edges == nil {
		graph.Edges = []domain.Edge{}
	}

	for _, rf := range raw.Forms {
		form := domain.Form{
			ID:          rf.ID,
			Name:        rf.Name,
			Description: rf.Description,
			Fields:      rf.Fields,
		}
		if form.Fields == nil && rf.FieldSchema != nil {
			form.Fields = fieldsFromSchema(rf.FieldSchema)
		}
		if form.Fields == nil {
			form.Fields = []domain.FieldDefinition{}
		}
		graph.Forms = append(graph.Forms, form)
	}

	return graph, nil
}

// fieldsFromSchema строит список полей из field_schema.
// Свойства идут в порядке ключей, чтобы результат не зависел от порядка map.
func fieldsFromSchema(schema *rawFieldSchema) []domain.FieldDefinition {
	required := make(map[string]bool, len(schema.Required))
	for _, name := range schema.Required {
		required[name] = true
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]domain.FieldDefinition, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]

		fieldType := prop.AvantosType
		if fieldType == "" {
			fieldType = prop.Type
		}
		label := prop.Title
		if label == "" {
			label = name
		}

		fields = append(fields, domain.FieldDefinition{
			ID:       name,
			Name:     name,
			Type:     fieldType,
			Label:    label,
			Required: required[name],
		})
	}

	return fields
}

// Validate выполняет структурную валидацию WorkflowGraph.
//
// Проверяет:
// - Наличие узлов
// - Непустые и уникальные ID узлов
// - Непустые и уникальные ID форм
// - Что рёбра ссылаются на существующие узлы
//
// Ацикличность не проверяется. Узел без формы ошибкой не считается.
func Validate(graph *domain.WorkflowGraph) error {
	if graph == nil || len(graph.Nodes) == 0 {
		return ErrEmptyGraph
	}

	nodeIDs := make(map[domain.NodeID]bool, len(graph.Nodes))
	for i, node := range graph.Nodes {
		if node.ID == "" {
			return NewValidationError("", "id",
				fmt.Sprintf("node %d has empty ID", i), ErrEmptyNodeID)
		}
		if nodeIDs[node.ID] {
			return NewValidationError(string(node.ID), "id",
				fmt.Sprintf("duplicate node ID: %s", node.ID), ErrDuplicateNodeID)
		}
		nodeIDs[node.ID] = true
	}

	formIDs := make(map[domain.FormID]bool, len(graph.Forms))
	for i, form := range graph.Forms {
		if form.ID == "" {
			return NewValidationError("", "forms",
				fmt.Sprintf("form %d has empty ID", i), ErrEmptyFormID)
		}
		if formIDs[form.ID] {
			return NewValidationError(string(form.ID), "forms",
				fmt.Sprintf("duplicate form ID: %s", form.ID), ErrDuplicateFormID)
		}
		formIDs[form.ID] = true
	}

	for _, edge := range graph.Edges {
		if !nodeIDs[edge.Source] {
			return NewValidationError(string(edge.Target), "edges",
				fmt.Sprintf("edge source not found: %s", edge.Source), ErrUnknownEdgeNode)
		}
		if !nodeIDs[edge.Target] {
			return NewValidationError(string(edge.Source), "edges",
				fmt.Sprintf("edge target not found: %s", edge.Target), ErrUnknownEdgeNode)
		}
	}

	return nil
}
