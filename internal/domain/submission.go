package domain

import (
	"time"

	"github.com/google/uuid"
)

// Submission — отправленные данные одной формы в рамках journey.
type Submission struct {
	// JourneyID — ссылка на journey.
	JourneyID uuid.UUID `json:"journey_id"`

	// NodeID — узел, в котором заполнялась форма.
	NodeID NodeID `json:"node_id"`

	// FormID — форма узла (копия component_id на момент отправки).
	FormID FormID `json:"form_id"`

	// Data — значения полей (имя поля → значение).
	Data map[string]any `json:"data"`

	// SubmittedAt — время отправки.
	SubmittedAt time.Time `json:"submitted_at"`
}

// Prefill — вычисленное значение предзаполнения поля.
type Prefill struct {
	// JourneyID — ссылка на journey.
	JourneyID uuid.UUID `json:"journey_id"`

	// NodeID — узел, поле которого предзаполняется.
	NodeID NodeID `json:"node_id"`

	// FieldID — поле формы.
	FieldID string `json:"field_id"`

	// Value — вычисленное значение.
	Value any `json:"value"`

	// Source — человекочитаемое описание источника ("Form A.email", "Global: ...").
	Source string `json:"source"`

	// ComputedAt — время вычисления.
	ComputedAt time.Time `json:"computed_at"`
}

// SubmissionData собирает FormSubmissionData из списка отправок.
//
// Данные ключуются по FormID. Если одна форма стоит в нескольких узлах,
// побеждает отправка, идущая в списке позже.
func SubmissionData(subs []Submission) FormSubmissionData {
	data := make(FormSubmissionData, len(subs))
	for _, s := range subs {
		data[s.FormID] = s.Data
	}
	return data
}

// SubmittedNodes возвращает множество узлов, для которых есть отправка.
func SubmittedNodes(subs []Submission) map[NodeID]bool {
	nodes := make(map[NodeID]bool, len(subs))
	for _, s := range subs {
		nodes[s.NodeID] = true
	}
	return nodes
}
