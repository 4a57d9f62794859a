package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно сообщение.
// Ошибка возвращает сообщение в очередь.
type Handler func(ctx context.Context, msg *Message) error

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	Queue   Queue
	Handler Handler

	// Prefetch — сколько сообщений брокер отдаёт без подтверждения (default: 1).
	Prefetch int

	// Limit — остановиться после стольких обработанных сообщений; 0 — без ограничения.
	Limit int

	Logger *slog.Logger
}

// Consumer читает сообщения из очереди и подтверждает их вручную.
type Consumer struct {
	conn     *Connection
	queue    Queue
	handler  Handler
	prefetch int
	limit    int
	logger   *slog.Logger

	handled int
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	prefetch := cfg.Prefetch
	if prefetch <= 0 {
		prefetch = 1
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Consumer{
		conn:     conn,
		queue:    cfg.Queue,
		handler:  cfg.Handler,
		prefetch: prefetch,
		limit:    cfg.Limit,
		logger:   logger.With("queue", string(cfg.Queue)),
	}
}

// Run потребляет сообщения до отмены ctx или до достижения Limit.
// После разрыва соединения ждёт переподключения и продолжает.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, err := c.subscribe(ctx)
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started")
			done, err := c.drain(ctx, deliveries)
			if done || ctx.Err() != nil {
				return err
			}
			c.logger.Warn("deliveries channel closed, waiting for reconnect")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.ReconnectNotify():
		}
	}
}

func (c *Consumer) subscribe(ctx context.Context) (<-chan amqp.Delivery, error) {
	var deliveries <-chan amqp.Delivery
	err := c.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := ch.Qos(c.prefetch, 0, false); err != nil {
			return fmt.Errorf("set qos: %w", err)
		}
		d, err := ch.ConsumeWithContext(ctx,
			string(c.queue), // queue
			"",              // consumer tag
			false,           // auto-ack
			false,           // exclusive
			false,           // no-local
			false,           // no-wait
			nil,             // args
		)
		if err != nil {
			return fmt.Errorf("consume: %w", err)
		}
		deliveries = d
		return nil
	})
	return deliveries, err
}

// drain обрабатывает сообщения; done == true — достигнут Limit или отменён ctx.
func (c *Consumer) drain(ctx context.Context, deliveries <-chan amqp.Delivery) (done bool, err error) {
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return false, nil
			}
			if c.handle(ctx, raw) {
				c.handled++
				if c.limit > 0 && c.handled >= c.limit {
					return true, nil
				}
			}
		}
	}
}

// handle возвращает true, если сообщение обработано и подтверждено.
func (c *Consumer) handle(ctx context.Context, raw amqp.Delivery) bool {
	msg, err := decode(raw.Body)
	if err != nil {
		c.logger.Error("failed to unmarshal message", "error", err, "body", string(raw.Body))
		_ = raw.Nack(false, false)
		return false
	}

	if err := c.handler(ctx, msg); err != nil {
		c.logger.Error("handler failed", "message_id", msg.ID, "type", msg.Type, "error", err)
		_ = raw.Nack(false, true)
		return false
	}

	_ = raw.Ack(false)
	return true
}

func decode(body []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ParsePayload разбирает payload сообщения в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	raw, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
