package engine

import "errors"

// Ошибки валидации WorkflowGraph.
var (
	// ErrEmptyGraph — граф не содержит узлов.
	ErrEmptyGraph = errors.New("workflow graph has no nodes")

	// ErrEmptyNodeID — узел не имеет ID.
	ErrEmptyNodeID = errors.New("node has empty ID")

	// ErrDuplicateNodeID — несколько узлов с одинаковым ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrEmptyFormID — форма не имеет ID.
	ErrEmptyFormID = errors.New("form has empty ID")

	// ErrDuplicateFormID — несколько форм с одинаковым ID.
	ErrDuplicateFormID = errors.New("duplicate form ID")

	// ErrUnknownEdgeNode — ребро ссылается на несуществующий узел.
	ErrUnknownEdgeNode = errors.New("edge references unknown node")
)

// Ошибки разбора документа.
var (
	// ErrParse — документ не является корректным JSON/YAML.
	ErrParse = errors.New("graph document parse failed")

	// ErrDecode — документ не удалось разложить в WorkflowGraph.
	ErrDecode = errors.New("graph document decode failed")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	NodeID  string // ID узла (или формы), где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(nodeID, field, message string, err error) *ValidationError {
	return &ValidationError{
		NodeID:  nodeID,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
