package domain

import (
	"time"

	"github.com/google/uuid"
)

// Blueprint — сохранённое определение workflow из форм.
//
// Blueprint — это "шаблон" многошагового сценария заполнения форм.
// По одному blueprint может проходить множество journeys.
type Blueprint struct {
	// ID — уникальный идентификатор blueprint.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя blueprint (например, "onboard-customer").
	Name string `json:"name"`

	// Description — описание назначения.
	Description string `json:"description,omitempty"`

	// Graph — снимок графа форм.
	// Хранится в JSONB, считается неизменяемым между обновлениями.
	Graph WorkflowGraph `json:"graph"`

	// GlobalData — глобальные данные, доступные для prefill через globalDataPath.
	GlobalData GlobalData `json:"global_data,omitempty"`

	// WebhookURL — куда отправлять уведомления о формах, готовых к заполнению.
	// Пустой — уведомления не отправляются.
	WebhookURL string `json:"webhook_url,omitempty"`

	// CreatedAt — время создания.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего изменения графа.
	// Участвует в ключе кэша обходов графа.
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch обновляет UpdatedAt.
func (b *Blueprint) Touch() {
	b.UpdatedAt = time.Now().UTC()
}
