package mq

import (
	"context"
	"log/slog"

	"github.com/shaiso/tensorgraph/internal/graph"
)

// SinkConfig — конфигурация EventSink.
type SinkConfig struct {
	// Sender — куда публиковать (обычно *Publisher).
	Sender Sender

	// FailuresOnly — публиковать только неудачные диспетчеризации.
	FailuresOnly bool

	// Logger
	Logger *slog.Logger
}

// EventSink — graph.Observer, публикующий DispatchEvent в ExchangeEvents.
//
// Ошибки публикации логируются и не влияют на обход графа.
type EventSink struct {
	sender       Sender
	failuresOnly bool
	logger       *slog.Logger
}

// NewEventSink создаёт EventSink.
func NewEventSink(cfg SinkConfig) *EventSink {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{
		sender:       cfg.Sender,
		failuresOnly: cfg.FailuresOnly,
		logger:       logger,
	}
}

// ObserveDispatch реализует graph.Observer.
func (s *EventSink) ObserveDispatch(ctx context.Context, ev graph.DispatchEvent) {
	failed := ev.Err != nil
	if s.failuresOnly && !failed {
		return
	}

	payload := DispatchPayload{
		GraphID:    ev.GraphID,
		Index:      ev.Index,
		Command:    ev.Command.Name,
		Backend:    ev.Command.Backend,
		Algorithm:  ev.Command.Algorithm,
		Phase:      string(ev.Phase),
		Subgraph:   ev.Subgraph,
		DurationUS: ev.Duration.Microseconds(),
	}
	if failed {
		payload.Error = ev.Err.Error()
	}

	// Отменённый обход не должен терять событие об ошибке.
	ctx = context.WithoutCancel(ctx)

	key := DispatchKey(payload.Phase, failed)
	if err := s.sender.Publish(ctx, ExchangeEvents, key, NewMessage(MessageTypeDispatch, payload)); err != nil {
		s.logger.Warn("failed to publish dispatch event",
			"routing_key", key,
			"graph_id", ev.GraphID,
			"exec", ev.Index,
			"error", err,
		)
	}
}
