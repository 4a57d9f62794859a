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

// ExchangeEvents — topic-обменник событий обхода и автотюнинга.
const ExchangeEvents Exchange = "tensorgraph.events"

// Очереди.
const (
	// QueueDispatchFailures — неудачные диспетчеризации любых фаз.
	QueueDispatchFailures Queue = "dispatch.failures"

	// QueueTuneCompleted — итоги проходов автотюнинга.
	QueueTuneCompleted Queue = "tune.completed"
)

// Шаблоны привязки очередей.
const (
	bindingFailures RoutingKey = "dispatch.*.failed"
	bindingTune     RoutingKey = "tune.completed"
)

// DispatchKey возвращает ключ маршрутизации события диспетчеризации:
// dispatch.<phase>.ok или dispatch.<phase>.failed.
func DispatchKey(phase string, failed bool) RoutingKey {
	status := "ok"
	if failed {
		status = "failed"
	}
	return RoutingKey("dispatch." + phase + "." + status)
}

// binding — привязка очереди к обменнику.
type binding struct {
	queue Queue
	key   RoutingKey
}

var bindings = []binding{
	{QueueDispatchFailures, bindingFailures},
	{QueueTuneCompleted, bindingTune},
}

// SetupTopology объявляет обменник, очереди и привязки.
// Операции идемпотентны; вызывается при старте сервиса.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeEvents), // name
			amqp.ExchangeTopic,     // type
			true,                   // durable
			false,                  // auto-deleted
			false,                  // internal
			false,                  // no-wait
			nil,                    // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeEvents, err)
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, nil); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.key), string(ExchangeEvents), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeEvents, err)
			}
		}
		return nil
	})
}
