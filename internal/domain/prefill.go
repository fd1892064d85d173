package domain

// PrefillConfig — привязка одного поля формы к источнику значения.
//
// Осмысленна ровно одна из двух форм:
//   - SourceFormID + SourceFieldID — поле формы выше по графу
//   - GlobalDataPath — путь через точку в глобальных данных
//
// Если обе формы пустые — поле не привязано.
type PrefillConfig struct {
	// SourceFormID — форма-источник.
	SourceFormID FormID `json:"sourceFormId,omitempty" mapstructure:"sourceFormId"`

	// SourceFieldID — составной идентификатор поля-источника.
	// Ключом в данных формы служит последний сегмент после "-".
	SourceFieldID string `json:"sourceFieldId,omitempty" mapstructure:"sourceFieldId"`

	// GlobalDataPath — путь в глобальных данных, например "Client Organization Properties.email".
	GlobalDataPath string `json:"globalDataPath,omitempty" mapstructure:"globalDataPath"`
}

// IsFormSource возвращает true, если значение берётся из формы.
func (c PrefillConfig) IsFormSource() bool {
	return c.SourceFormID != "" && c.SourceFieldID != ""
}

// IsGlobalSource возвращает true, если значение берётся из глобальных данных.
func (c PrefillConfig) IsGlobalSource() bool {
	return !c.IsFormSource() && c.GlobalDataPath != ""
}

// IsMapped возвращает true, если у поля есть источник.
func (c PrefillConfig) IsMapped() bool {
	return c.IsFormSource() || c.IsGlobalSource()
}

// SourceKind возвращает тип источника: "form", "global" или "none".
func (c PrefillConfig) SourceKind() string {
	switch {
	case c.IsFormSource():
		return "form"
	case c.IsGlobalSource():
		return "global"
	default:
		return "none"
	}
}

// FieldMappings — привязки полей одной формы (fieldID → PrefillConfig).
type FieldMappings map[string]PrefillConfig

// PrefillMappingTable — привязки всех форм workflow (NodeID → FieldMappings).
//
// Таблицей владеет сессия редактирования. Движок только читает её.
// Каждое изменение заменяет таблицу целиком (см. session.Apply),
// поэтому читатели никогда не видят наполовину обновлённое состояние.
type PrefillMappingTable map[NodeID]FieldMappings

// Lookup возвращает привязку поля.
func (t PrefillMappingTable) Lookup(node NodeID, fieldID string) (PrefillConfig, bool) {
	fields, ok := t[node]
	if !ok {
		return PrefillConfig{}, false
	}
	cfg, ok := fields[fieldID]
	return cfg, ok
}

// Clone возвращает поверхностную копию таблицы: карта узлов и карты полей копируются,
// сами PrefillConfig — значения и копируются автоматически.
func (t PrefillMappingTable) Clone() PrefillMappingTable {
	if t == nil {
		return PrefillMappingTable{}
	}
	out := make(PrefillMappingTable, len(t))
	for node, fields := range t {
		copied := make(FieldMappings, len(fields))
		for id, cfg := range fields {
			copied[id] = cfg
		}
		out[node] = copied
	}
	return out
}

// GlobalData — глобальные данные workflow, не привязанные к формам.
// Произвольная вложенная структура, только для чтения.
type GlobalData map[string]any

// FormSubmissionData — отправленные данные форм (FormID → имя поля → значение).
type FormSubmissionData map[FormID]map[string]any
