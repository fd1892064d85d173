package domain

// JourneyStatus — статус прохождения journey.
//
// Жизненный цикл:
//
//	IN_PROGRESS → COMPLETED
//	            ↘ CANCELLED
type JourneyStatus string

const (
	// JourneyStatusInProgress — формы ещё заполняются.
	JourneyStatusInProgress JourneyStatus = "IN_PROGRESS"

	// JourneyStatusCompleted — все формы отправлены.
	JourneyStatusCompleted JourneyStatus = "COMPLETED"

	// JourneyStatusCancelled — journey отменён оператором.
	JourneyStatusCancelled JourneyStatus = "CANCELLED"
)

// IsTerminal возвращает true, если статус финальный.
func (s JourneyStatus) IsTerminal() bool {
	switch s {
	case JourneyStatusCompleted, JourneyStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseJourneyStatus парсит строку в JourneyStatus.
// Неизвестные значения трактуются как IN_PROGRESS.
func ParseJourneyStatus(s string) JourneyStatus {
	switch s {
	case "COMPLETED":
		return JourneyStatusCompleted
	case "CANCELLED":
		return JourneyStatusCancelled
	default:
		return JourneyStatusInProgress
	}
}
