package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/shaiso/Journey/internal/domain"
)

// Notification — тело webhook о форме, готовой к заполнению.
type Notification struct {
	Event       string         `json:"event"`
	JourneyID   uuid.UUID      `json:"journey_id"`
	BlueprintID uuid.UUID      `json:"blueprint_id"`
	NodeID      domain.NodeID  `json:"node_id"`
	FormID      domain.FormID  `json:"form_id"`
	Prefill     map[string]any `json:"prefill"`
	SentAt      time.Time      `json:"sent_at"`
}

// DeliveryResult — ответ webhook.
type DeliveryResult struct {
	StatusCode int
	Body       string
}

// OK проверяет, принят ли webhook (2xx).
func (r *DeliveryResult) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// WebhookNotifier отправляет уведомления POST-запросом с JSON телом.
//
// Заголовки:
//   - Content-Type: application/json
//   - X-Journey-Event: form.ready
//   - X-Journey-Delivery: ID доставки (одинаковый для всех попыток)
type WebhookNotifier struct {
	client *http.Client
}

// NewWebhookNotifier создаёт WebhookNotifier.
func NewWebhookNotifier(client *http.Client) *WebhookNotifier {
	return &WebhookNotifier{client: client}
}

// Notify выполняет одну попытку доставки.
//
// Ошибка возвращается только при сетевых сбоях; ответ с любым кодом
// возвращается как DeliveryResult.
func (n *WebhookNotifier) Notify(ctx context.Context, url, deliveryID string, notification *Notification) (*DeliveryResult, error) {
	body, err := json.Marshal(notification)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal body: %v", ErrWebhookRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrWebhookRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Journey-Event", notification.Event)
	req.Header.Set("X-Journey-Delivery", deliveryID)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWebhookRequest, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrWebhookRequest, err)
	}

	return &DeliveryResult{
		StatusCode: resp.StatusCode,
		Body:       truncate(string(respBody), 200),
	}, nil
}

// truncate обрезает строку до maxLen байт, не разрывая UTF-8 символ.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
