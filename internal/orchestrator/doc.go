// Package orchestrator ведёт journeys по графу форм.
//
// Orchestrator отвечает за:
//   - Получение событий journey.started и submission.received
//   - Вычисление узлов, готовых к заполнению
//   - Вычисление prefill-значений по таблице привязок blueprint
//   - Публикацию form.ready для worker
//   - Завершение journey, когда все формы отправлены
//
// Если RabbitMQ недоступен, journeys продвигаются только polling'ом.
package orchestrator
