// Package fixtures содержит встроенный blueprint "Onboard Customer 0".
//
// Четыре формы A, B, C, D с рёбрами A→B, A→C, B→D, глобальные данные
// и начальная таблица привязок (D.email ← A.email). Используется тестами,
// локальными командами CLI и seed-эндпоинтом API.
//
// Каждый вызов возвращает новую копию, изменять результат безопасно.
package fixtures

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/shaiso/Journey/internal/domain"
)

//go:embed data/*.json
var files embed.FS

// Идентификаторы узлов.
const (
	NodeA domain.NodeID = "form-47c61d17-62b0-4c42-8ca2-0eff641c9d88"
	NodeB domain.NodeID = "form-a4750667-d774-40fb-9b0a-44f8539ff6c4"
	NodeC domain.NodeID = "form-7c26f280-7bff-40e3-b9a5-0533136f52c3"
	NodeD domain.NodeID = "form-0f58384c-4966-4ce6-9ec2-40b96d61f745"
)

// Идентификаторы форм.
const (
	FormA domain.FormID = "f_01jk7ap2r3ewf9gx6a9r09gzja"
	FormB domain.FormID = "f_01jk7awbhqewgbkbgk8rjm7bv7"
	FormC domain.FormID = "f_01jk7aygnqewh8gt8549beb1yc"
	FormD domain.FormID = "f_01jk7ap2r3ewf9gx6a9r09gzjv"
)

// BlueprintID — ID blueprint во внешней системе.
const BlueprintID = "bp_01jk766tckfwx84xjcxazggzyc"

// OnboardCustomer возвращает граф "Onboard Customer 0".
func OnboardCustomer() *domain.WorkflowGraph {
	var graph domain.WorkflowGraph
	mustLoad("data/onboard_customer.json", &graph)
	return &graph
}

// GlobalData возвращает глобальные данные по умолчанию.
func GlobalData() domain.GlobalData {
	var global domain.GlobalData
	mustLoad("data/global_data.json", &global)
	return global
}

// InitialMappings возвращает начальную таблицу привязок в исходном виде:
// ключи и источники заданы ID узлов. Перед использованием её нужно
// привести через engine.Graph.NormalizeMappings.
func InitialMappings() map[string]domain.FieldMappings {
	var raw map[string]domain.FieldMappings
	mustLoad("data/initial_mappings.json", &raw)
	return raw
}

// Raw возвращает исходный JSON графа.
func Raw() []byte {
	data, err := files.ReadFile("data/onboard_customer.json")
	if err != nil {
		panic(fmt.Sprintf("fixtures: %v", err))
	}
	return data
}

// mustLoad разбирает встроенный файл. Файлы проверяются тестами пакета,
// поэтому ошибка здесь — ошибка сборки, а не данных.
func mustLoad(name string, v any) {
	data, err := files.ReadFile(name)
	if err != nil {
		panic(fmt.Sprintf("fixtures: read %s: %v", name, err))
	}
	if err := json.Unmarshal(data, v); err != nil {
		panic(fmt.Sprintf("fixtures: decode %s: %v", name, err))
	}
}
