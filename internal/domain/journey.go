package domain

import (
	"time"

	"github.com/google/uuid"
)

// Journey — одно прохождение blueprint.
//
// Journey создаётся через API. Orchestrator отслеживает отправку форм,
// вычисляет готовые к заполнению узлы и их prefill-значения.
type Journey struct {
	// ID — уникальный идентификатор journey.
	ID uuid.UUID `json:"id"`

	// BlueprintID — ссылка на blueprint.
	BlueprintID uuid.UUID `json:"blueprint_id"`

	// Status — текущий статус.
	Status JourneyStatus `json:"status"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// FinishedAt — время завершения или отмены.
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// IsFinished возвращает true, если journey завершён (в любом статусе).
func (j *Journey) IsFinished() bool {
	return j.Status.IsTerminal()
}

// MarkCompleted переводит journey в статус COMPLETED.
func (j *Journey) MarkCompleted() {
	now := time.Now()
	j.Status = JourneyStatusCompleted
	j.FinishedAt = &now
}

// MarkCancelled переводит journey в статус CANCELLED.
func (j *Journey) MarkCancelled() {
	now := time.Now()
	j.Status = JourneyStatusCancelled
	j.FinishedAt = &now
}
