package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/tensorgraph/internal/graph"
)

type sent struct {
	exchange Exchange
	key      RoutingKey
	msg      *Message
}

type fakeSender struct {
	sent []sent
	err  error
}

func (f *fakeSender) Publish(_ context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	f.sent = append(f.sent, sent{exchange, key, msg})
	return f.err
}

func TestDispatchKey(t *testing.T) {
	if got := DispatchKey("run", false); got != "dispatch.run.ok" {
		t.Errorf("unexpected key %s", got)
	}
	if got := DispatchKey("autotune", true); got != "dispatch.autotune.failed" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestEventSink_Publishes(t *testing.T) {
	sender := &fakeSender{}
	sink := NewEventSink(SinkConfig{Sender: sender})

	id := uuid.New()
	sink.ObserveDispatch(context.Background(), graph.DispatchEvent{
		GraphID:  id,
		Index:    3,
		Command:  graph.Command{Name: "matmul", Backend: "gpu", Algorithm: 2},
		Phase:    graph.PhaseRun,
		Duration: 1500 * time.Microsecond,
		Err:      errors.New("shape mismatch"),
	})

	if len(sender.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(sender.sent))
	}
	s := sender.sent[0]
	if s.exchange != ExchangeEvents || s.key != "dispatch.run.failed" {
		t.Errorf("unexpected route %s/%s", s.exchange, s.key)
	}
	if s.msg.Type != MessageTypeDispatch {
		t.Errorf("unexpected type %s", s.msg.Type)
	}
	if _, err := uuid.Parse(s.msg.ID); err != nil {
		t.Errorf("expected UUID message id, got %q", s.msg.ID)
	}

	p := s.msg.Payload.(DispatchPayload)
	if p.GraphID != id || p.Index != 3 || p.Command != "matmul" || p.Backend != "gpu" || p.Algorithm != 2 {
		t.Errorf("unexpected payload %+v", p)
	}
	if p.DurationUS != 1500 || p.Error != "shape mismatch" {
		t.Errorf("unexpected payload %+v", p)
	}
}

func TestEventSink_FailuresOnly(t *testing.T) {
	sender := &fakeSender{}
	sink := NewEventSink(SinkConfig{Sender: sender, FailuresOnly: true})

	sink.ObserveDispatch(context.Background(), graph.DispatchEvent{Phase: graph.PhaseRun})
	if len(sender.sent) != 0 {
		t.Errorf("expected successful dispatch to be skipped, got %d", len(sender.sent))
	}

	sink.ObserveDispatch(context.Background(), graph.DispatchEvent{Phase: graph.PhaseAutotune, Err: errors.New("x")})
	if len(sender.sent) != 1 || sender.sent[0].key != "dispatch.autotune.failed" {
		t.Errorf("expected one failure event, got %+v", sender.sent)
	}
}

// Ошибка публикации не пробрасывается в обход графа.
func TestEventSink_SenderError(t *testing.T) {
	sender := &fakeSender{err: ErrNoChannel}
	sink := NewEventSink(SinkConfig{Sender: sender})

	sink.ObserveDispatch(context.Background(), graph.DispatchEvent{Phase: graph.PhaseRun})
	if len(sender.sent) != 1 {
		t.Errorf("expected publish attempt, got %d", len(sender.sent))
	}
}

// Отменённый контекст обхода не мешает публикации.
func TestEventSink_CancelledContext(t *testing.T) {
	var got context.Context
	sender := senderFunc(func(ctx context.Context, _ Exchange, _ RoutingKey, _ *Message) error {
		got = ctx
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewEventSink(SinkConfig{Sender: sender}).ObserveDispatch(ctx, graph.DispatchEvent{Phase: graph.PhaseRun, Err: context.Canceled})
	if got == nil || got.Err() != nil {
		t.Error("expected publish with a live context")
	}
}

type senderFunc func(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error

func (f senderFunc) Publish(ctx context.Context, exchange Exchange, key RoutingKey, msg *Message) error {
	return f(ctx, exchange, key, msg)
}

func TestPublishTuneCompleted(t *testing.T) {
	sender := &fakeSender{}
	err := PublishTuneCompleted(context.Background(), sender, TuneCompletedPayload{Manifest: "m.json", Nodes: 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sender.sent[0].key != "tune.completed" || sender.sent[0].msg.Type != MessageTypeTuneCompleted {
		t.Errorf("unexpected message %+v", sender.sent[0])
	}
}

func TestDecodeAndParsePayload(t *testing.T) {
	body, err := json.Marshal(NewMessage(MessageTypeDispatch, DispatchPayload{Index: 7, Command: "add", Phase: "run"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg, err := decode(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, err := ParsePayload[DispatchPayload](msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Index != 7 || p.Command != "add" {
		t.Errorf("unexpected payload %+v", p)
	}

	if _, err := decode([]byte("{")); err == nil {
		t.Error("expected error for broken body")
	}
}
