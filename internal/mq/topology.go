package mq

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — тип для имени обменника.
type Exchange string

// Queue — тип для имени очереди.
type Queue string

// RoutingKey — тип для ключа маршрутизации.
type RoutingKey string

// Exchanges — имена обменников.
const (
	ExchangeEvents Exchange = "journey.events"
	ExchangeDLQ    Exchange = "journey.dlq"
)

// Queues — имена очередей.
const (
	QueueJourneysStarted     Queue = "journeys.started"
	QueueSubmissionsReceived Queue = "submissions.received"
	QueueFormsReady          Queue = "forms.ready"
	QueueDLQForms            Queue = "dlq.forms"
)

// Routing keys.
const (
	RoutingKeyStarted   RoutingKey = "started"
	RoutingKeySubmitted RoutingKey = "submitted"
	RoutingKeyReady     RoutingKey = "ready"
	RoutingKeyDLQForms  RoutingKey = "forms"
)

// SetupTopology объявляет exchanges, очереди и привязки.
// Операции идемпотентны: сервисы вызывают её при каждом старте.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareExchanges(ch); err != nil {
			return err
		}
		if err := declareQueues(ch); err != nil {
			return err
		}
		return bindQueues(ch)
	})
}

func declareExchanges(ch *amqp.Channel) error {
	for _, name := range []Exchange{ExchangeEvents, ExchangeDLQ} {
		err := ch.ExchangeDeclare(
			string(name), // name
			"direct",     // type
			true,         // durable
			false,        // auto-deleted
			false,        // internal
			false,        // no-wait
			nil,          // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", name, err)
		}
	}
	return nil
}

func declareQueues(ch *amqp.Channel) error {
	// Уведомления, которые webhook так и не принял, уходят в dlq.forms
	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    string(ExchangeDLQ),
		"x-dead-letter-routing-key": string(RoutingKeyDLQForms),
	}

	queues := []struct {
		name Queue
		args amqp.Table
	}{
		{QueueJourneysStarted, nil},
		{QueueSubmissionsReceived, nil},
		{QueueFormsReady, dlqArgs},
		{QueueDLQForms, nil},
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			string(q.name), // name
			true,           // durable
			false,          // delete when unused
			false,          // exclusive
			false,          // no-wait
			q.args,         // arguments
		)
		if err != nil {
			return fmt.Errorf("declare queue %s: %w", q.name, err)
		}
	}
	return nil
}

func bindQueues(ch *amqp.Channel) error {
	for _, b := range bindings() {
		err := ch.QueueBind(
			string(b.queue),      // queue name
			string(b.routingKey), // routing key
			string(b.exchange),   // exchange
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("bind queue %s to %s: %w", b.queue, b.exchange, err)
		}
	}
	return nil
}

type binding struct {
	queue      Queue
	routingKey RoutingKey
	exchange   Exchange
}

func bindings() []binding {
	return []binding{
		{QueueJourneysStarted, RoutingKeyStarted, ExchangeEvents},
		{QueueSubmissionsReceived, RoutingKeySubmitted, ExchangeEvents},
		{QueueFormsReady, RoutingKeyReady, ExchangeEvents},
		{QueueDLQForms, RoutingKeyDLQForms, ExchangeDLQ},
	}
}

// TopologyInfo возвращает описание топологии для логирования.
func TopologyInfo() string {
	return `
  Journey RabbitMQ Topology:

    journey.events (direct)
    ├── journeys.started [routing: started]
    │       Consumer: Orchestrator
    ├── submissions.received [routing: submitted]
    │       Consumer: Orchestrator
    └── forms.ready [routing: ready]
            Consumer: Worker
            DLQ: dlq.forms

    journey.dlq (direct)
    └── dlq.forms [routing: forms]
            Manual processing
  `
}
