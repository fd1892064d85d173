// Package session содержит состояние сеанса редактирования привязок.
//
// Состояние неизменяемо: каждое изменение (Edit) применяется через Apply
// и даёт новое State. Исходное состояние и его таблица привязок не
// меняются, поэтому читатель, получивший таблицу, никогда не увидит
// наполовину применённое изменение.
package session

import (
	"errors"
	"fmt"

	"github.com/shaiso/Journey/internal/domain"
)

var (
	// ErrEmptyNodeID — изменение не указывает узел.
	ErrEmptyNodeID = errors.New("edit has empty node ID")

	// ErrEmptyFieldID — изменение не указывает поле.
	ErrEmptyFieldID = errors.New("edit has empty field ID")

	// ErrUnmappedConfig — привязка не указывает ни форму, ни глобальный путь.
	ErrUnmappedConfig = errors.New("prefill config has no source")
)

// State — состояние сеанса редактирования одного blueprint.
type State struct {
	// BlueprintID — blueprint, привязки которого редактируются.
	BlueprintID string

	// Mappings — текущая таблица привязок.
	Mappings domain.PrefillMappingTable

	// SelectedNode — узел, выбранный оператором.
	SelectedNode domain.NodeID
}

// New создаёт состояние с копией таблицы привязок.
func New(blueprintID string, mappings domain.PrefillMappingTable) State {
	return State{
		BlueprintID: blueprintID,
		Mappings:    mappings.Clone(),
	}
}

// Edit — одно изменение состояния.
type Edit interface {
	apply(State) (State, error)
}

// SelectNode выбирает узел.
type SelectNode struct {
	NodeID domain.NodeID
}

// SetMapping задаёт или заменяет привязку поля.
type SetMapping struct {
	NodeID  domain.NodeID
	FieldID string
	Config  domain.PrefillConfig
}

// RemoveMapping удаляет привязку поля.
// Запись узла остаётся, даже если в ней не осталось полей.
type RemoveMapping struct {
	NodeID  domain.NodeID
	FieldID string
}

// ClearNode удаляет все привязки узла вместе с его записью.
type ClearNode struct {
	NodeID domain.NodeID
}

// Apply применяет изменение и возвращает новое состояние.
// При ошибке возвращается исходное состояние.
func Apply(state State, edit Edit) (State, error) {
	if edit == nil {
		return state, nil
	}

	next, err := edit.apply(state)
	if err != nil {
		return state, err
	}
	return next, nil
}

// ApplyAll применяет изменения по очереди. Первая ошибка прерывает
// применение, и возвращается исходное состояние.
func ApplyAll(state State, edits ...Edit) (State, error) {
	current := state
	for i, edit := range edits {
		next, err := Apply(current, edit)
		if err != nil {
			return state, fmt.Errorf("edit %d: %w", i, err)
		}
		current = next
	}
	return current, nil
}

func (e SelectNode) apply(s State) (State, error) {
	s.SelectedNode = e.NodeID
	return s, nil
}

func (e SetMapping) apply(s State) (State, error) {
	if e.NodeID == "" {
		return s, ErrEmptyNodeID
	}
	if e.FieldID == "" {
		return s, ErrEmptyFieldID
	}
	if !e.Config.IsMapped() {
		return s, ErrUnmappedConfig
	}

	table, fields := copyNode(s.Mappings, e.NodeID)
	fields[e.FieldID] = e.Config
	s.Mappings = table
	return s, nil
}

func (e RemoveMapping) apply(s State) (State, error) {
	if e.NodeID == "" {
		return s, ErrEmptyNodeID
	}
	if e.FieldID == "" {
		return s, ErrEmptyFieldID
	}

	table, fields := copyNode(s.Mappings, e.NodeID)
	delete(fields, e.FieldID)
	s.Mappings = table
	return s, nil
}

func (e ClearNode) apply(s State) (State, error) {
	if e.NodeID == "" {
		return s, ErrEmptyNodeID
	}

	table := shallowCopy(s.Mappings)
	delete(table, e.NodeID)
	s.Mappings = table
	return s, nil
}

// copyNode копирует внешнюю карту таблицы и карту полей одного узла.
// Карты остальных узлов разделяются со старой таблицей: они не меняются.
func copyNode(table domain.PrefillMappingTable, node domain.NodeID) (domain.PrefillMappingTable, domain.FieldMappings) {
	out := shallowCopy(table)

	fields := make(domain.FieldMappings, len(table[node])+1)
	for id, cfg := range table[node] {
		fields[id] = cfg
	}
	out[node] = fields

	return out, fields
}

func shallowCopy(table domain.PrefillMappingTable) domain.PrefillMappingTable {
	out := make(domain.PrefillMappingTable, len(table)+1)
	for node, fields := range table {
		out[node] = fields
	}
	return out
}
