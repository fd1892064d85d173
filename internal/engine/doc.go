// Package engine содержит движок графа зависимостей форм и prefill.
//
// Включает:
//   - parser.go     — разбор WorkflowGraph из JSON/YAML, структурная валидация
//   - graph.go      — индекс графа (NodeID → FormID), обход upstream/downstream
//   - resolver.go   — вычисление значения поля по PrefillConfig, разбор путей
//   - validator.go  — проверка полноты привязок обязательных полей
//   - candidates.go — источники для выбора оператором, нормализация таблицы привязок
//
// Все операции движка синхронные и не имеют побочных эффектов, кроме
// диагностического логирования. Ошибки "не найдено" не возвращаются:
// операции отдают пустой результат, а подробности пишутся в лог.
//
// Граф должен быть ацикличным, но движок это не проверяет. Обход несёт
// множество посещённых узлов, поэтому на графе с циклом он завершается.
package engine
