package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// MessageType — тип сообщения в очереди.
type MessageType string

// Типы сообщений.
const (
	MessageTypeDispatch      MessageType = "exec.dispatch"
	MessageTypeTuneCompleted MessageType = "tune.completed"
)

// Message — конверт сообщения.
type Message struct {
	// ID — уникальный идентификатор сообщения (UUID).
	ID string `json:"id"`

	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID и текущим временем.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// DispatchPayload — событие диспетчеризации exec-узла.
type DispatchPayload struct {
	GraphID    uuid.UUID `json:"graph_id"`
	Index      int       `json:"index"`
	Command    string    `json:"command"`
	Backend    string    `json:"backend,omitempty"`
	Algorithm  int       `json:"algorithm"`
	Phase      string    `json:"phase"`
	Subgraph   bool      `json:"subgraph,omitempty"`
	DurationUS int64     `json:"duration_us"`
	Error      string    `json:"error,omitempty"`
}

// TuneCompletedPayload — итог прохода автотюнинга по manifest.
type TuneCompletedPayload struct {
	Manifest   string    `json:"manifest"`
	GraphID    uuid.UUID `json:"graph_id"`
	Nodes      int       `json:"nodes"`
	Workspace  int64     `json:"workspace"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
}

// Sender публикует сообщения; реализуется Publisher.
type Sender interface {
	Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error
}

// Publisher публикует JSON-сообщения в RabbitMQ.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// Publish публикует сообщение в exchange с ключом key.
func (p *Publisher) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx, string(exchange), string(key), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.ID,
			Type:         string(msg.Type),
			Timestamp:    msg.Timestamp,
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", exchange, key, err)
		}

		p.logger.Debug("published message",
			"exchange", exchange,
			"routing_key", key,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}

// PublishTuneCompleted публикует итог прохода автотюнинга.
func PublishTuneCompleted(ctx context.Context, s Sender, payload TuneCompletedPayload) error {
	return s.Publish(ctx, ExchangeEvents, bindingTune, NewMessage(MessageTypeTuneCompleted, payload))
}
