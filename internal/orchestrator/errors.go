package orchestrator

import "errors"

// Ошибки оркестратора.
var (
	// ErrJourneyNotFound — journey не найден в БД.
	ErrJourneyNotFound = errors.New("journey not found")

	// ErrBlueprintNotFound — blueprint journey удалён.
	ErrBlueprintNotFound = errors.New("blueprint not found")

	// ErrJourneyFinished — journey уже завершён или отменён.
	ErrJourneyFinished = errors.New("journey already finished")

	// ErrInvalidGraph — граф blueprint не прошёл валидацию.
	ErrInvalidGraph = errors.New("invalid blueprint graph")
)
