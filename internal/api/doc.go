// Package api содержит HTTP API сервер.
//
// Структура:
//   - handler.go           — Handler с DI (хранилища, publisher, кэш, logger)
//   - routes.go            — регистрация маршрутов
//   - middleware.go        — middleware (recovery, logging, metrics)
//   - response.go          — унифицированные JSON-ответы и обработка ошибок
//   - dto.go               — Data Transfer Objects (request/response)
//   - blueprint_handler.go — обработчики для /blueprints
//   - graph_handler.go     — обходы графа, источники, полнота привязок
//   - mapping_handler.go   — редактирование таблицы привязок
//   - journey_handler.go   — journeys, отправки форм и /resolve
//
// Запросы к графу не меняют состояние и не возвращают ошибок движка:
// неизвестный узел проверяется заранее и даёт 404.
package api
