package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Journey/internal/domain"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeJourneyStarted     MessageType = "journey.started"
	MessageTypeSubmissionReceived MessageType = "submission.received"
	MessageTypeFormReady          MessageType = "form.ready"
)

// Publisher публикует сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Message — сообщение для публикации.
type Message struct {
	// ID — уникальный идентификатор сообщения.
	ID string `json:"id"`

	// Type — тип сообщения.
	Type MessageType `json:"type"`

	// Payload — полезная нагрузка.
	Payload any `json:"payload"`

	// Timestamp — время создания.
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// JourneyStartedPayload — journey создан, пора вычислить первые готовые формы.
type JourneyStartedPayload struct {
	JourneyID   uuid.UUID `json:"journey_id"`
	BlueprintID uuid.UUID `json:"blueprint_id"`
}

// SubmissionReceivedPayload — в journey отправлена форма.
type SubmissionReceivedPayload struct {
	JourneyID uuid.UUID     `json:"journey_id"`
	NodeID    domain.NodeID `json:"node_id"`
}

// FormReadyPayload — форма готова к заполнению, prefill-значения вычислены.
type FormReadyPayload struct {
	JourneyID   uuid.UUID      `json:"journey_id"`
	BlueprintID uuid.UUID      `json:"blueprint_id"`
	NodeID      domain.NodeID  `json:"node_id"`
	FormID      domain.FormID  `json:"form_id"`
	Prefill     map[string]any `json:"prefill,omitempty"`
}

// Publish публикует сообщение в указанный exchange с routing key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, routingKey RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(
			ctx,
			string(exchange),   // exchange
			string(routingKey), // routing key
			false,
			false,
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, routingKey, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", routingKey,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishJourneyStarted публикует событие о новом journey.
// Потребитель: Orchestrator.
func (p *Publisher) PublishJourneyStarted(ctx context.Context, journeyID, blueprintID uuid.UUID) error {
	msg := NewMessage(MessageTypeJourneyStarted, JourneyStartedPayload{
		JourneyID:   journeyID,
		BlueprintID: blueprintID,
	})
	return p.Publish(ctx, ExchangeEvents, RoutingKeyStarted, msg)
}

// PublishSubmissionReceived публикует событие об отправке формы.
// Потребитель: Orchestrator.
func (p *Publisher) PublishSubmissionReceived(ctx context.Context, journeyID uuid.UUID, nodeID domain.NodeID) error {
	msg := NewMessage(MessageTypeSubmissionReceived, SubmissionReceivedPayload{
		JourneyID: journeyID,
		NodeID:    nodeID,
	})
	return p.Publish(ctx, ExchangeEvents, RoutingKeySubmitted, msg)
}

// PublishFormReady публикует событие о форме, готовой к заполнению.
// Потребитель: Worker.
func (p *Publisher) PublishFormReady(ctx context.Context, payload FormReadyPayload) error {
	msg := NewMessage(MessageTypeFormReady, payload)
	return p.Publish(ctx, ExchangeEvents, RoutingKeyReady, msg)
}

// PublishJSON публикует произвольный JSON payload.
func (p *Publisher) PublishJSON(ctx context.Context, exchange Exchange, routingKey RoutingKey, msgType MessageType, payload any) error {
	return p.Publish(ctx, exchange, routingKey, NewMessage(msgType, payload))
}
