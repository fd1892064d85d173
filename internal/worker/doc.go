// Package worker доставляет уведомления о формах, готовых к заполнению.
//
// # Обзор
//
// Worker — stateless компонент, который потребляет form.ready из очереди
// forms.ready и отправляет их на webhook blueprint (Blueprint.WebhookURL).
// Blueprint без webhook пропускается.
//
//	w := worker.New(worker.Config{
//	    Blueprints: blueprintRepo,
//	    Conn:       mqConn,
//	    Logger:     logger,
//	})
//
//	if err := w.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer w.Stop()
//
// # Доставка
//
// POST с JSON телом Notification. Ответ 2xx — доставлено.
//
// Retry выполняется в процессе, а не через requeue в RabbitMQ:
//   - "exponential": delay = initialDelay * 2^(attempt-1), не больше maxDelay
//   - "fixed": delay = initialDelay
//
// Сетевые ошибки повторяются всегда, ответы — только с кодами из OnStatus.
//
// # Ошибки
//
//   - Код не из OnStatus или попытки исчерпаны — сообщение уходит в dlq.forms
//   - Сетевая ошибка после всех попыток тоже уходит в DLQ
//   - Ошибка чтения blueprint — сообщение возвращается в очередь один раз
package worker
