package engine

import "github.com/shaiso/Journey/internal/domain"

// IsComplete проверяет, что у всех обязательных полей узла есть привязка.
//
// Если у узла нет записи в таблице — узел полон, только когда список
// обязательных полей пуст. Иначе каждое поле из required должно иметь
// запись; содержимое записи не проверяется.
func IsComplete(node domain.NodeID, required []string, table domain.PrefillMappingTable) bool {
	fields, ok := table[node]
	if !ok {
		return len(required) == 0
	}

	for _, fieldID := range required {
		if _, ok := fields[fieldID]; !ok {
			return false
		}
	}

	return true
}

// MissingFields возвращает обязательные поля без привязки в порядке required.
func MissingFields(node domain.NodeID, required []string, table domain.PrefillMappingTable) []string {
	missing := make([]string, 0)
	fields := table[node]
	for _, fieldID := range required {
		if _, ok := fields[fieldID]; !ok {
			missing = append(missing, fieldID)
		}
	}
	return missing
}

// FormCompleteness — полнота привязок одного узла.
type FormCompleteness struct {
	NodeID   domain.NodeID `json:"node_id"`
	FormID   domain.FormID `json:"form_id"`
	FormName string        `json:"form_name"`
	Required []string      `json:"required"`
	Missing  []string      `json:"missing"`
	Complete bool          `json:"complete"`
}

// Completeness проверяет все узлы графа в порядке снимка.
// Узлы без формы пропускаются.
func (g *Graph) Completeness(table domain.PrefillMappingTable) []FormCompleteness {
	result := make([]FormCompleteness, 0, len(g.order))

	for _, id := range g.order {
		form, ok := g.bindings[id]
		if !ok {
			continue
		}

		required := form.RequiredFieldIDs()
		result = append(result, FormCompleteness{
			NodeID:   id,
			FormID:   form.ID,
			FormName: g.nodes[id].Data.Name,
			Required: required,
			Missing:  MissingFields(id, required, table),
			Complete: IsComplete(id, required, table),
		})
	}

	return result
}
