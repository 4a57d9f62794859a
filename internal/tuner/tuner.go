package tuner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/tensorgraph/internal/controlflow"
	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/manifest"
	"github.com/shaiso/tensorgraph/internal/mq"
	"github.com/shaiso/tensorgraph/internal/telemetry"
)

// ErrNoAutotuner — в Config не задан Autotuner.
var ErrNoAutotuner = errors.New("autotuner is required")

// Config — конфигурация Tuner.
type Config struct {
	// ManifestPath — путь к JSON manifest.
	ManifestPath string

	// Workspace — бюджет памяти для автотюнинга, байт.
	Workspace int64

	// Autotuner — обычно tuning.CachedAutotuner.
	Autotuner graph.Autotuner

	// Observers — например, telemetry.Metrics и mq.EventSink.
	Observers []graph.Observer

	// Sender (опционально) — публикация итога прохода.
	Sender mq.Sender
}

// Result — итог одного прохода.
type Result struct {
	GraphID  uuid.UUID
	Nodes    int
	Started  time.Time
	Duration time.Duration
	Err      error
}

// Tuner выполняет проходы автотюнинга. Проходы сериализуются.
//
// Логгер берётся из контекста прохода (telemetry.FromContext).
type Tuner struct {
	path      string
	workspace int64
	autotuner graph.Autotuner
	observers []graph.Observer
	sender    mq.Sender

	// run сериализует проходы; mu защищает last.
	run  sync.Mutex
	mu   sync.Mutex
	last *Result
}

// New создаёт Tuner.
func New(cfg Config) (*Tuner, error) {
	if cfg.Autotuner == nil {
		return nil, ErrNoAutotuner
	}

	return &Tuner{
		path:      cfg.ManifestPath,
		workspace: cfg.Workspace,
		autotuner: cfg.Autotuner,
		observers: cfg.Observers,
		sender:    cfg.Sender,
	}, nil
}

// Pass выполняет один проход.
func (t *Tuner) Pass(ctx context.Context) error {
	return t.PassResult(ctx).Err
}

// PassResult выполняет один проход и возвращает его итог.
// Итог принадлежит вызывающему: проход, завершившийся позже, его не подменит.
func (t *Tuner) PassResult(ctx context.Context) *Result {
	t.run.Lock()
	defer t.run.Unlock()

	logger := telemetry.FromContext(ctx).With("manifest", t.path)
	ctx = telemetry.WithLogger(ctx, logger)

	res := &Result{Started: time.Now()}
	res.Err = t.pass(ctx, logger, res)
	res.Duration = time.Since(res.Started)

	last := *res
	t.mu.Lock()
	t.last = &last
	t.mu.Unlock()

	t.publish(ctx, res)

	if res.Err == nil {
		logger.Info("autotune pass completed",
			"graph_id", res.GraphID.String(),
			"nodes", res.Nodes,
			"duration", res.Duration,
		)
	}
	return res
}

func (t *Tuner) pass(ctx context.Context, logger *slog.Logger, res *Result) error {
	m, err := manifest.Load(t.path)
	if err != nil {
		return err
	}
	b, err := manifest.Build(m)
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	defer b.Graph.Free()
	res.GraphID = b.Graph.ID()

	driver := controlflow.New(controlflow.Config{Logger: logger})
	if err := b.Attach(driver); err != nil {
		return err
	}

	counter := &nodeCounter{}
	runner := graph.NewRunner(graph.Config{
		Autotuner:   t.autotuner,
		ControlFlow: driver,
		Observers:   append([]graph.Observer{counter}, t.observers...),
		Workspace:   t.workspace,
		Logger:      logger,
	})

	err = runner.Autotune(ctx, b.Graph, nil, nil)
	res.Nodes = int(counter.n.Load())
	return err
}

func (t *Tuner) publish(ctx context.Context, res *Result) {
	if t.sender == nil {
		return
	}

	payload := mq.TuneCompletedPayload{
		Manifest:   t.path,
		GraphID:    res.GraphID,
		Nodes:      res.Nodes,
		Workspace:  t.workspace,
		DurationMS: res.Duration.Milliseconds(),
	}
	if res.Err != nil {
		payload.Error = res.Err.Error()
	}

	if err := mq.PublishTuneCompleted(context.WithoutCancel(ctx), t.sender, payload); err != nil {
		telemetry.FromContext(ctx).Warn("failed to publish tune.completed", "error", err)
	}
}

// Last возвращает итог последнего прохода; nil — проходов ещё не было.
func (t *Tuner) Last() *Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	res := *t.last
	return &res
}

// nodeCounter считает узлы с операциями, для которых выбрана реализация.
type nodeCounter struct {
	n atomic.Int64
}

func (c *nodeCounter) ObserveDispatch(_ context.Context, ev graph.DispatchEvent) {
	if !ev.Subgraph && ev.Err == nil {
		c.n.Add(1)
	}
}
