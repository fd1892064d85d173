// Package cli реализует инструмент командной строки Journey.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Journey API.
// Удалённые команды работают через HTTP и не импортируют internal/api.
// Локальные команды (local) используют движок графа напрямую и
// не требуют сервера.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Journey API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	blueprints, err := client.ListBlueprints()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: journey blueprint list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - blueprint: list, get, create, seed, delete
//   - graph: upstream, downstream, candidates
//   - mapping: list, set, remove, check
//   - journey: start, get, submit, prefills, cancel
//   - local: inspect, resolve
//
// Каждая группа создаётся через фабричную функцию (NewBlueprintCmd и т.д.),
// принимающую clientFn и outputFn — замыкания для ленивого создания
// Client и Output после парсинга PersistentFlags.
package cli
