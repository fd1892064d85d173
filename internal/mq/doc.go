// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение с reconnect и graceful shutdown
//   - topology.go   — exchanges, очереди, привязки
//   - publisher.go  — публикация событий journey
//   - consumer.go   — потребление с ack/nack и DLQ
//
// Типы сообщений:
//   - journey.started     — создан journey (→ orchestrator)
//   - submission.received — отправлена форма (→ orchestrator)
//   - form.ready          — форма готова, prefill вычислен (→ worker)
//
// Exchanges:
//   - journey.events — все события journey
//   - journey.dlq    — dead letter для непринятых уведомлений
package mq
