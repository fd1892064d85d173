package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Journey/internal/mq"
	"github.com/shaiso/Journey/internal/repo"
	"github.com/shaiso/Journey/internal/telemetry"
)

// RetryPolicy — политика повторов доставки webhook.
type RetryPolicy struct {
	// MaxAttempts — всего попыток, включая первую.
	MaxAttempts int

	// InitialDelay — задержка перед второй попыткой.
	InitialDelay time.Duration

	// MaxDelay — потолок задержки.
	MaxDelay time.Duration

	// Backoff — "exponential" или "fixed".
	Backoff string

	// OnStatus — коды ответа, после которых есть смысл повторить.
	OnStatus []int
}

// DefaultRetryPolicy возвращает политику по умолчанию:
// 5 попыток, exponential от 500ms до 30s, повтор на 408, 429, 500, 502, 503 и 504.
// Остальные коды (501, 505 и 4xx) повторять бесполезно.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Backoff:      "exponential",
		OnStatus:     []int{408, 429, 500, 502, 503, 504},
	}
}

// handleFormReady обрабатывает событие form.ready.
func (w *Worker) handleFormReady(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.FormReadyPayload](&delivery.Message)
	if err != nil {
		return mq.Discard(fmt.Errorf("parse form.ready payload: %w", err))
	}

	logger := telemetry.WithNodeID(
		telemetry.WithJourneyID(w.logger, payload.JourneyID.String()),
		string(payload.NodeID),
	)

	bp, err := w.blueprints.GetByID(ctx, payload.BlueprintID)
	if errors.Is(err, repo.ErrNotFound) {
		logger.Debug("blueprint deleted, dropping notification")
		telemetry.WebhookDeliveries.WithLabelValues("skipped").Inc()
		return nil
	}
	if err != nil {
		return fmt.Errorf("get blueprint: %w", err)
	}

	if bp.WebhookURL == "" {
		telemetry.WebhookDeliveries.WithLabelValues("skipped").Inc()
		return nil
	}

	notification := &Notification{
		Event:       string(mq.MessageTypeFormReady),
		JourneyID:   payload.JourneyID,
		BlueprintID: payload.BlueprintID,
		NodeID:      payload.NodeID,
		FormID:      payload.FormID,
		Prefill:     payload.Prefill,
		SentAt:      time.Now().UTC(),
	}
	if notification.Prefill == nil {
		notification.Prefill = map[string]any{}
	}

	attempts, err := w.deliverWithRetry(ctx, bp.WebhookURL, delivery.Message.ID, notification)
	if err != nil {
		telemetry.WebhookDeliveries.WithLabelValues("failed").Inc()
		logger.Warn("webhook delivery failed", "attempts", attempts, "error", err)
		if errors.Is(err, ErrWebhookRejected) || errors.Is(err, ErrRetryExhausted) {
			return mq.Discard(err)
		}
		return err
	}

	telemetry.WebhookDeliveries.WithLabelValues("delivered").Inc()
	logger.Info("webhook delivered", "attempts", attempts)
	return nil
}

// deliverWithRetry доставляет уведомление согласно политике повторов.
// Возвращает число сделанных попыток.
func (w *Worker) deliverWithRetry(ctx context.Context, url, deliveryID string, notification *Notification) (int, error) {
	var lastErr error

	for attempt := 1; ; attempt++ {
		result, err := w.notifier.Notify(ctx, url, deliveryID, notification)
		if err == nil && result.OK() {
			return attempt, nil
		}

		retriable := true
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("HTTP %d: %s", result.StatusCode, result.Body)
			retriable = shouldRetryHTTPStatus(result.StatusCode, w.retry.OnStatus)
		}

		if !retriable {
			return attempt, fmt.Errorf("%w: %v", ErrWebhookRejected, lastErr)
		}
		if attempt >= w.retry.MaxAttempts {
			return attempt, fmt.Errorf("%w: %v", ErrRetryExhausted, lastErr)
		}

		delay := calculateBackoff(attempt, w.retry)
		w.logger.Debug("retrying webhook",
			"url", url,
			"attempt", attempt,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return attempt, ctx.Err()
		}
	}
}

// shouldRetryHTTPStatus проверяет, входит ли HTTP-код в список для retry.
func shouldRetryHTTPStatus(statusCode int, onStatus []int) bool {
	for _, code := range onStatus {
		if statusCode == code {
			return true
		}
	}
	return false
}

// calculateBackoff вычисляет задержку после попытки attempt.
func calculateBackoff(attempt int, policy RetryPolicy) time.Duration {
	initialDelay := policy.InitialDelay
	if initialDelay <= 0 {
		initialDelay = time.Second
	}

	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	delay := initialDelay
	if policy.Backoff == "exponential" {
		// delay = initialDelay * 2^(attempt-1)
		for i := 1; i < attempt; i++ {
			delay *= 2
			if delay > maxDelay {
				break
			}
		}
	}

	return min(delay, maxDelay)
}
