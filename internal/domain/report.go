package domain

import (
	"time"

	"github.com/google/uuid"
)

// CompletenessReport — результат проверки полноты привязок одного узла.
//
// Отчёты пишет scheduler (периодический аудит), API читает последний.
type CompletenessReport struct {
	// BlueprintID — ссылка на blueprint.
	BlueprintID uuid.UUID `json:"blueprint_id"`

	// NodeID — проверенный узел.
	NodeID NodeID `json:"node_id"`

	// FormName — имя формы узла (для удобства чтения отчёта).
	FormName string `json:"form_name"`

	// Required — обязательные поля формы.
	Required []string `json:"required"`

	// Missing — обязательные поля без привязки.
	Missing []string `json:"missing,omitempty"`

	// Complete — все обязательные поля привязаны.
	Complete bool `json:"complete"`

	// CheckedAt — время проверки.
	CheckedAt time.Time `json:"checked_at"`
}
