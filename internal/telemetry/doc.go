// Package telemetry — логирование и метрики сервисов Journey.
//
// logging.go настраивает slog по LOG_LEVEL и LOG_FORMAT и переносит
// логгер запроса через context. metrics.go регистрирует Prometheus
// метрики обходов, вычислений prefill, кэша, webhook и аудита; их
// отдаёт /metrics каждого бинарника.
package telemetry
