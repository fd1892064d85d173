package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoConnection — worker не работает без RabbitMQ.
	ErrNoConnection = errors.New("worker requires a RabbitMQ connection")

	// ErrWebhookRequest — запрос к webhook не выполнен (сеть, DNS, таймаут).
	ErrWebhookRequest = errors.New("webhook request failed")

	// ErrWebhookRejected — webhook ответил кодом, который не повторяется.
	ErrWebhookRejected = errors.New("webhook rejected notification")

	// ErrRetryExhausted — все попытки исчерпаны.
	ErrRetryExhausted = errors.New("retry attempts exhausted")
)
