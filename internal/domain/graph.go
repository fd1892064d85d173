package domain

import "encoding/json"

// NodeID — идентификатор узла графа (например, "form-47c61d17-...").
//
// Узел — это место формы в workflow. Одна и та же форма может стоять
// в нескольких узлах, поэтому NodeID и FormID — разные пространства имён.
type NodeID string

// FormID — идентификатор определения формы (например, "f_01jk7ap2r3...").
type FormID string

// WorkflowGraph — снимок workflow: узлы, рёбра и формы.
//
// Граф строится один раз на определение workflow и не меняется
// в течение сессии редактирования. Ожидается, что граф ацикличен,
// но это нигде не проверяется.
type WorkflowGraph struct {
	// ID — идентификатор blueprint во внешней системе (например, "bp_01jk76...").
	ID string `json:"id,omitempty" mapstructure:"id"`

	// Name — имя workflow.
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Description — описание workflow.
	Description string `json:"description,omitempty" mapstructure:"description"`

	// Nodes — узлы графа.
	Nodes []Node `json:"nodes" mapstructure:"nodes"`

	// Edges — направленные рёбра "source → target".
	Edges []Edge `json:"edges" mapstructure:"edges"`

	// Forms — определения форм, на которые ссылаются узлы через component_id.
	Forms []Form `json:"forms" mapstructure:"forms"`
}

// Node — узел графа.
type Node struct {
	// ID — идентификатор узла.
	ID NodeID `json:"id" mapstructure:"id"`

	// Type — тип узла (для форм — "form").
	Type string `json:"type,omitempty" mapstructure:"type"`

	// Position — координаты узла на холсте редактора.
	Position Position `json:"position" mapstructure:"position"`

	// Data — содержимое узла.
	Data NodeData `json:"data" mapstructure:"data"`
}

// Position — координаты узла.
type Position struct {
	X float64 `json:"x" mapstructure:"x"`
	Y float64 `json:"y" mapstructure:"y"`
}

// NodeData — данные узла.
type NodeData struct {
	// ID — идентификатор компонента blueprint.
	ID string `json:"id,omitempty" mapstructure:"id"`

	// ComponentKey — ключ компонента (обычно совпадает с NodeID).
	ComponentKey string `json:"component_key,omitempty" mapstructure:"component_key"`

	// ComponentType — тип компонента ("form").
	ComponentType string `json:"component_type,omitempty" mapstructure:"component_type"`

	// ComponentID — ссылка на Form.ID.
	ComponentID FormID `json:"component_id" mapstructure:"component_id"`

	// Name — отображаемое имя узла.
	Name string `json:"name" mapstructure:"name"`

	// Prerequisites — узлы, от которых зависит этот узел.
	// Дублирует входящие рёбра; согласованность с Edges не проверяется.
	Prerequisites []NodeID `json:"prerequisites" mapstructure:"prerequisites"`

	// Extra — остальные поля data, которые движок не интерпретирует.
	// В JSON записываются рядом с известными полями, а не вложенным объектом.
	Extra map[string]any `json:"-" mapstructure:",remain"`
}

// nodeDataFields — NodeData без собственных методов JSON.
type nodeDataFields NodeData

// nodeDataKeys — ключи data, которые разбираются в поля NodeData.
var nodeDataKeys = map[string]bool{
	"id":             true,
	"component_key":  true,
	"component_type": true,
	"component_id":   true,
	"name":           true,
	"prerequisites":  true,
}

// MarshalJSON записывает Extra на одном уровне с известными полями.
// Ключи Extra, совпадающие с известными, пропускаются.
func (d NodeData) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(nodeDataFields(d))
	if err != nil {
		return nil, err
	}
	if len(d.Extra) == 0 {
		return known, nil
	}

	merged := make(map[string]any, len(d.Extra)+len(nodeDataKeys))
	for k, v := range d.Extra {
		if !nodeDataKeys[k] {
			merged[k] = v
		}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(known, &fields); err != nil {
		return nil, err
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON складывает неизвестные ключи data в Extra.
func (d *NodeData) UnmarshalJSON(data []byte) error {
	var fields nodeDataFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if nodeDataKeys[k] {
			delete(raw, k)
		}
	}
	if len(raw) > 0 {
		fields.Extra = raw
	}

	*d = NodeData(fields)
	return nil
}

// Edge — ребро "source производит данные, которые потребляет target".
type Edge struct {
	Source NodeID `json:"source" mapstructure:"source"`
	Target NodeID `json:"target" mapstructure:"target"`
}

// Form — определение формы.
type Form struct {
	// ID — идентификатор формы.
	ID FormID `json:"id" mapstructure:"id"`

	// Name — отображаемое имя формы.
	Name string `json:"name" mapstructure:"name"`

	// Description — описание формы.
	Description string `json:"description,omitempty" mapstructure:"description"`

	// Fields — упорядоченный список полей.
	Fields []FieldDefinition `json:"fields" mapstructure:"fields"`
}

// FieldDefinition — поле формы.
type FieldDefinition struct {
	ID       string `json:"id" mapstructure:"id"`
	Name     string `json:"name" mapstructure:"name"`
	Type     string `json:"type" mapstructure:"type"`
	Label    string `json:"label" mapstructure:"label"`
	Required bool   `json:"required,omitempty" mapstructure:"required"`
}

// Field возвращает поле по ID.
func (f *Form) Field(id string) (FieldDefinition, bool) {
	for _, field := range f.Fields {
		if field.ID == id {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// RequiredFieldIDs возвращает ID обязательных полей в порядке объявления.
func (f *Form) RequiredFieldIDs() []string {
	ids := make([]string, 0)
	for _, field := range f.Fields {
		if field.Required {
			ids = append(ids, field.ID)
		}
	}
	return ids
}
