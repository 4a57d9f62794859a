package graph

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Phase — вид обхода графа.
type Phase string

const (
	// PhaseRun — выполнение операций.
	PhaseRun Phase = "run"

	// PhaseAutotune — выбор реализаций операций.
	PhaseAutotune Phase = "autotune"
)

// Executor выполняет операцию над конкретными тензорами.
//
// Запись в выходные тензоры — целиком забота реализации. Политика
// повторов тоже: ошибка Execute останавливает обход.
type Executor interface {
	Execute(ctx context.Context, cmd Command, hint Hint, inputs, outputs []*tensor.Tensor) error
}

// Autotuner выбирает лучший вариант реализации операции
// для данных форм тензоров в пределах workspace байт.
type Autotuner interface {
	Autotune(ctx context.Context, cmd Command, workspace int64, hint Hint, inputs, outputs []*tensor.Tensor) (Command, error)
}

// ControlFlow решает, сколько раз и обходить ли дочерний граф узла parent.
//
// Для обхода реализация вызывает r.Run(ctx, child, ...) и между
// итерациями переключает выбор multiview.
type ControlFlow interface {
	RunSubgraph(ctx context.Context, r *Runner, parent Handle, child *Graph) error
}

// Observer получает событие после каждой диспетчеризации узла.
type Observer interface {
	ObserveDispatch(ctx context.Context, ev DispatchEvent)
}

// DispatchEvent — результат диспетчеризации одного узла.
type DispatchEvent struct {
	GraphID  uuid.UUID
	Index    int
	Command  Command
	Phase    Phase
	Subgraph bool
	Duration time.Duration
	Err      error
}

// Config — конфигурация Runner.
type Config struct {
	// Executor — исполнитель операций (обязателен для Run).
	Executor Executor

	// Autotuner — выбор реализаций (обязателен для Autotune).
	Autotuner Autotuner

	// ControlFlow (опционально; если nil — дочерний граф обходится один раз).
	ControlFlow ControlFlow

	// Observers получают DispatchEvent после каждого узла.
	Observers []Observer

	// Workspace — бюджет памяти для Autotune, байт.
	Workspace int64

	// Rewind — после Run и Autotune вернуть слоты графа к исходным
	// multiview, чтобы Exec.Inputs и выгрузка DOT видели уровень 0.
	// Без него слоты остаются разрешёнными по последнему обходу.
	Rewind bool

	// Logger
	Logger *slog.Logger
}

// Runner обходит граф в порядке зависимостей и диспетчеризует узлы.
//
// Runner не хранит состояния обхода, но сам обход меняет состояние
// tensor nests графа: два одновременных обхода одного графа недопустимы.
type Runner struct {
	executor  Executor
	autotuner Autotuner
	control   ControlFlow
	observers []Observer
	workspace int64
	rewind    bool
	logger    *slog.Logger
}

// NewRunner создаёт Runner.
func NewRunner(cfg Config) *Runner {
	control := cfg.ControlFlow
	if control == nil {
		control = once{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observers := make([]Observer, 0, len(cfg.Observers))
	for _, o := range cfg.Observers {
		if o != nil {
			observers = append(observers, o)
		}
	}

	return &Runner{
		executor:  cfg.Executor,
		autotuner: cfg.Autotuner,
		control:   control,
		observers: observers,
		workspace: cfg.Workspace,
		rewind:    cfg.Rewind,
		logger:    logger,
	}
}

// Workspace возвращает бюджет памяти для Autotune.
func (r *Runner) Workspace() int64 {
	return r.workspace
}

// Run выполняет узлы области (sources, destinations) в порядке зависимостей.
//
// Для каждого узла multiview-слоты разрешаются в конкретные тензоры, затем
// операция уходит в Executor, а узел с дочерним графом — в ControlFlow.
// Первая ошибка останавливает обход и возвращается как *DispatchError.
// Ошибки порядка (*ScopeError) возвращаются без обёртки.
func (r *Runner) Run(ctx context.Context, g *Graph, sources, destinations []Handle) error {
	if r.executor == nil {
		return ErrNoExecutor
	}
	return r.traverse(ctx, PhaseRun, g, sources, destinations)
}

// Autotune обходит граф так же, как Run, но вместо выполнения заменяет
// команду каждого узла результатом Autotuner. Дочерние графы настраиваются
// один раз, независимо от ControlFlow.
func (r *Runner) Autotune(ctx context.Context, g *Graph, sources, destinations []Handle) error {
	if r.autotuner == nil {
		return ErrNoAutotuner
	}
	return r.traverse(ctx, PhaseAutotune, g, sources, destinations)
}

func (r *Runner) traverse(ctx context.Context, phase Phase, g *Graph, sources, destinations []Handle) error {
	logger := r.logger.With("graph_id", g.ID().String(), "phase", string(phase))
	if r.rewind {
		defer g.Rewind()
	}

	return g.Visit(sources, destinations, func(h Handle, e *Exec) error {
		cmd := e.cmd
		start := time.Now()
		err := r.dispatch(ctx, phase, h, e)

		ev := DispatchEvent{
			GraphID:  g.ID(),
			Index:    h.index,
			Command:  cmd,
			Phase:    phase,
			Subgraph: e.subgraph != nil,
			Duration: time.Since(start),
			Err:      err,
		}
		for _, o := range r.observers {
			o.ObserveDispatch(ctx, ev)
		}

		if err == nil {
			logger.Debug("exec dispatched",
				"index", h.index,
				"command", cmd.String(),
				"duration", ev.Duration,
			)
			return nil
		}

		// Ошибка порядка в дочернем графе — ошибка построения, а не выполнения
		var scopeErr *ScopeError
		if errors.As(err, &scopeErr) && !errors.Is(err, ErrDispatch) {
			return err
		}

		logger.Error("exec dispatch failed",
			"index", h.index,
			"command", cmd.String(),
			"error", err,
		)
		return &DispatchError{
			Phase:   phase,
			Index:   h.index,
			Command: cmd.String(),
			Err:     err,
		}
	})
}

func (r *Runner) dispatch(ctx context.Context, phase Phase, h Handle, e *Exec) error {
	if err := e.resolve(); err != nil {
		return err
	}

	if e.subgraph != nil {
		if phase == PhaseAutotune {
			return r.Autotune(ctx, e.subgraph, nil, nil)
		}
		return r.control.RunSubgraph(ctx, r, h, e.subgraph)
	}

	inputs, err := concrete(e.inputs)
	if err != nil {
		return err
	}
	outputs, err := concrete(e.outputs)
	if err != nil {
		return err
	}

	if phase == PhaseRun {
		return r.executor.Execute(ctx, e.cmd, e.hint.clone(), inputs, outputs)
	}

	cmd, err := r.autotuner.Autotune(ctx, e.cmd, r.workspace, e.hint.clone(), inputs, outputs)
	if err != nil {
		return err
	}
	e.cmd = cmd
	return nil
}

// once — ControlFlow по умолчанию: один обход дочернего графа
// с его собственными sources/destinations.
type once struct{}

func (once) RunSubgraph(ctx context.Context, r *Runner, _ Handle, child *Graph) error {
	return r.Run(ctx, child, nil, nil)
}
