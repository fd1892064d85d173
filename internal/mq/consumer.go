package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Journey/internal/telemetry"
)

// Handler обрабатывает одно событие Journey.
//
// nil — ack. Ошибка — сообщение возвращается в очередь один раз,
// повторный сбой уводит его в journey.dlq. Ошибка, обёрнутая Discard,
// уводит сообщение в DLQ сразу.
type Handler func(ctx context.Context, msg *Delivery) error

// ErrDiscard помечает ошибку, после которой повторять обработку бессмысленно.
var ErrDiscard = errors.New("discard message")

// Discard оборачивает err так, что сообщение уйдёт в DLQ без повтора.
func Discard(err error) error {
	return fmt.Errorf("%w: %w", ErrDiscard, err)
}

// Delivery — событие, прочитанное из очереди.
type Delivery struct {
	Message Message

	// RoutingKey — ключ, с которым событие опубликовано.
	RoutingKey string

	// Redelivered — событие уже однажды возвращалось в очередь.
	Redelivered bool
}

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	Queue   string
	Handler Handler

	// Prefetch — сколько событий обрабатывается одновременно (default: 1).
	Prefetch int
}

// Consumer читает события одной очереди и раздаёт их Handler.
type Consumer struct {
	conn     *Connection
	logger   *slog.Logger
	queue    string
	handler  Handler
	prefetch int

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewConsumer создаёт Consumer для очереди cfg.Queue.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}

	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}

	return &Consumer{
		conn:     conn,
		logger:   logger.With("queue", cfg.Queue),
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
	}
}

// Start блокируется до отмены ctx или Stop. После разрыва соединения
// подписка восстанавливается по сигналу Connection.ReconnectNotify.
func (c *Consumer) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	for {
		deliveries, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started", "prefetch", c.prefetch)
			c.drain(ctx, deliveries)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("subscription lost, waiting for reconnect")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

// Stop останавливает Start; начатые обработчики дорабатывают.
func (c *Consumer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}

func (c *Consumer) subscribe() (<-chan amqp.Delivery, error) {
	ch := c.conn.Channel()
	if ch == nil || ch.IsClosed() {
		return nil, ErrNoChannel
	}

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return nil, fmt.Errorf("set qos: %w", err)
	}

	// Ack ручной: результат Handler решает судьбу сообщения
	deliveries, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queue, err)
	}
	return deliveries, nil
}

// drain обрабатывает доставки в prefetch горутинах, пока канал открыт
// и ctx не отменён. Возвращается после завершения всех обработчиков.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) {
	var wg sync.WaitGroup
	for range c.prefetch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-deliveries:
					if !ok {
						return
					}
					c.dispatch(ctx, raw)
				}
			}
		}()
	}
	wg.Wait()
}

func (c *Consumer) dispatch(ctx context.Context, raw amqp.Delivery) {
	delivery, err := decodeDelivery(raw)
	if err != nil {
		c.logger.Error("malformed message", "error", err, "body", string(raw.Body))
		telemetry.ObserveMessage(c.queue, "malformed")
		raw.Nack(false, false)
		return
	}

	logger := c.logger.With("message_id", delivery.Message.ID, "type", delivery.Message.Type)
	logger.Debug("received message")

	herr := c.handler(ctx, delivery)
	ack, requeue := settle(herr, delivery.Redelivered)
	if ack {
		telemetry.ObserveMessage(c.queue, "ack")
		raw.Ack(false)
		return
	}

	outcome := "dead_letter"
	if requeue {
		outcome = "requeue"
	}
	logger.Error("handler failed", "outcome", outcome, "error", herr)
	telemetry.ObserveMessage(c.queue, outcome)
	raw.Nack(false, requeue)
}

func decodeDelivery(raw amqp.Delivery) (*Delivery, error) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		return nil, err
	}
	return &Delivery{
		Message:     msg,
		RoutingKey:  raw.RoutingKey,
		Redelivered: raw.Redelivered,
	}, nil
}

// settle решает судьбу сообщения по результату Handler.
// Повторно доставленное сообщение в очередь больше не возвращается.
func settle(err error, redelivered bool) (ack, requeue bool) {
	if err == nil {
		return true, false
	}
	return false, !errors.Is(err, ErrDiscard) && !redelivered
}

// ParsePayload приводит Payload к типу T через JSON: после доставки
// payload приходит как map[string]any.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
