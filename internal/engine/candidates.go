package engine

import (
	"sort"
	"strconv"

	"github.com/shaiso/Journey/internal/domain"
)

// SourceCandidate — форма выше по графу, из которой можно взять значение поля.
type SourceCandidate struct {
	// NodeID — узел, в котором стоит форма-источник.
	NodeID domain.NodeID `json:"node_id"`

	// NodeName — имя узла (data.name).
	NodeName string `json:"node_name"`

	// Form — форма-источник со всеми полями.
	Form domain.Form `json:"form"`

	// Direct — узел является прямой зависимостью.
	Direct bool `json:"direct"`
}

// SourceCandidates возвращает источники для выбора оператором.
//
// Обход идёт по prerequisites: сначала прямые зависимости узла, затем
// транзитивные. Дубликаты по Form.ID удаляются, остаётся первое вхождение,
// поэтому форма, доступная и напрямую и транзитивно, помечена как прямая.
func (g *Graph) SourceCandidates(node domain.NodeID) []SourceCandidate {
	result := make([]SourceCandidate, 0)

	if _, ok := g.nodes[node]; !ok {
		g.logger.Error("could not find node", "node_id", node)
		return result
	}

	seen := make(map[domain.FormID]bool)
	visited := map[domain.NodeID]bool{node: true}

	var visit func(id domain.NodeID, direct bool)
	visit = func(id domain.NodeID, direct bool) {
		deps := g.prerequisitesOf(id)

		for _, dep := range deps {
			form, ok := g.bindings[dep]
			if !ok || seen[form.ID] {
				continue
			}
			seen[form.ID] = true
			result = append(result, SourceCandidate{
				NodeID:   dep,
				NodeName: g.nodes[dep].Data.Name,
				Form:     *form,
				Direct:   direct,
			})
		}

		for _, dep := range deps {
			if visited[dep] {
				continue
			}
			visited[dep] = true
			if _, ok := g.nodes[dep]; !ok {
				continue
			}
			visit(dep, false)
		}
	}
	visit(node, true)

	return result
}

// GlobalDataOption — один выбираемый лист глобальных данных.
type GlobalDataOption struct {
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// GlobalDataOptions разворачивает глобальные данные в список листовых путей.
// Вложенные map и срезы раскрываются (элементы среза адресуются индексом),
// остальные значения становятся листьями. Результат отсортирован по пути.
func GlobalDataOptions(global domain.GlobalData) []GlobalDataOption {
	options := make([]GlobalDataOption, 0)
	flatten(map[string]any(global), "", &options)

	sort.Slice(options, func(i, j int) bool {
		return options[i].Path < options[j].Path
	})
	return options
}

func flatten(value any, prefix string, out *[]GlobalDataOption) {
	join := func(key string) string {
		if prefix == "" {
			return key
		}
		return prefix + "." + key
	}

	switch v := value.(type) {
	case map[string]any:
		for key, child := range v {
			flatten(child, join(key), out)
		}
	case domain.GlobalData:
		for key, child := range v {
			flatten(child, join(key), out)
		}
	case map[string]string:
		for key, child := range v {
			*out = append(*out, GlobalDataOption{Path: join(key), Value: child})
		}
	case []any:
		for i, child := range v {
			flatten(child, join(strconv.Itoa(i)), out)
		}
	case nil:
		// null в глобальных данных выбрать нельзя
	default:
		if prefix != "" {
			*out = append(*out, GlobalDataOption{Path: prefix, Value: v})
		}
	}
}

// InvalidMapping — подпись привязки без действующего источника.
const InvalidMapping = "Invalid mapping"

// DescribeMapping возвращает подпись привязки для оператора.
//
//   - Источник-форма: "<имя источника>.<имя поля>". ID источника сначала
//     ищется среди узлов (имя берётся из узла), затем среди форм.
//   - Глобальные данные: "Global: <путь>".
//   - Иначе, в том числе когда источник не найден: "Invalid mapping".
func (g *Graph) DescribeMapping(cfg domain.PrefillConfig) string {
	switch {
	case cfg.IsFormSource():
		var (
			form *domain.Form
			name string
		)
		if node, ok := g.nodes[domain.NodeID(cfg.SourceFormID)]; ok {
			if f, ok := g.bindings[node.ID]; ok {
				form, name = f, node.Data.Name
			}
		} else if forms := g.forms[cfg.SourceFormID]; len(forms) > 0 {
			form, name = forms[0], forms[0].Name
		}

		if form != nil {
			field, ok := form.Field(cfg.SourceFieldID)
			if !ok {
				field, ok = form.Field(FieldKey(cfg.SourceFieldID))
			}
			if ok {
				return name + "." + field.Name
			}
		}

		g.logger.Error("could not find mapping source",
			"source_form_id", cfg.SourceFormID,
			"source_field_id", cfg.SourceFieldID,
		)

	case cfg.IsGlobalSource():
		return "Global: " + cfg.GlobalDataPath
	}

	return InvalidMapping
}

// NormalizeMappings приводит входящую таблицу привязок к ключам NodeID.
//
// Ключ, совпадающий с ID узла, остаётся как есть. Ключ-FormID переносится
// на первый узел, в котором стоит форма. Остальные ключи отбрасываются
// с записью в лог. Источник, указанный ID узла, переписывается на FormID
// формы этого узла, потому что отправленные данные хранятся по FormID.
//
// Входная таблица не изменяется.
func (g *Graph) NormalizeMappings(raw map[string]domain.FieldMappings) domain.PrefillMappingTable {
	table := make(domain.PrefillMappingTable, len(raw))

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		var target domain.NodeID
		if _, ok := g.nodes[domain.NodeID(key)]; ok {
			target = domain.NodeID(key)
		} else if id, ok := g.NodeForForm(domain.FormID(key)); ok {
			target = id
			g.logger.Debug("mapping re-keyed from form to node", "form_id", key, "node_id", id)
		} else {
			g.logger.Error("mapping key matches no node or form", "key", key)
			continue
		}

		fields, ok := table[target]
		if !ok {
			fields = make(domain.FieldMappings, len(raw[key]))
			table[target] = fields
		}
		for fieldID, cfg := range raw[key] {
			fields[fieldID] = g.normalizeSource(cfg)
		}
	}

	return table
}

// normalizeSource переписывает источник-узел на FormID его формы.
func (g *Graph) normalizeSource(cfg domain.PrefillConfig) domain.PrefillConfig {
	if cfg.SourceFormID == "" {
		return cfg
	}
	if formID, ok := g.FormIDForNode(domain.NodeID(cfg.SourceFormID)); ok {
		cfg.SourceFormID = formID
	}
	return cfg
}
