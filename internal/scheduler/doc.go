// Package scheduler выполняет периодический аудит полноты привязок.
//
// По расписанию (AUDIT_CRON, robfig/cron) scheduler проверяет каждый
// blueprint: у каких узлов есть обязательные поля без привязки.
// Результат заменяет отчёт в completeness_reports и экспортируется
// как gauge journey_incomplete_forms.
//
// Структура:
//   - scheduler.go — Scheduler (Start, Tick, Audit, AuditBlueprint)
//   - cron.go      — разбор cron-выражений и адаптер логгера cron
//
// Использование:
//
//	sched, err := scheduler.New(scheduler.Config{
//	    Blueprints: blueprintRepo,
//	    Mappings:   mappingRepo,
//	    Reports:    reportRepo,
//	    Lock:       repo.NewAdvisoryLock(pool, lockKey), // опционально
//	    Spec:       os.Getenv("AUDIT_CRON"),
//	    Logger:     logger,
//	})
//
// Leader Election:
//
// При нескольких экземплярах аудит выполняет только держатель
// pg_try_advisory_lock. Блокировка живёт на отдельном соединении.
package scheduler
