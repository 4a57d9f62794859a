package controlflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/telemetry"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

const defaultMaxIterations = 1 << 16

// Config — конфигурация Driver.
type Config struct {
	// MaxIterations — предел итераций одного цикла (default: 65536).
	MaxIterations int

	// Logger
	Logger *slog.Logger
}

// Driver — graph.ControlFlow с конструкциями, привязанными к узлам.
//
// Узел без зарегистрированной конструкции выполняет подграф один раз.
type Driver struct {
	constructs    map[graph.Handle]Construct
	maxIterations int
	logger        *slog.Logger
}

// New создаёт Driver.
func New(cfg Config) *Driver {
	maxIterations := cfg.MaxIterations
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Driver{
		constructs:    make(map[graph.Handle]Construct),
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Register привязывает конструкцию к узлу с подграфом.
func (d *Driver) Register(h graph.Handle, c Construct) error {
	if h.IsZero() {
		return fmt.Errorf("register %s: %w", h, graph.ErrInvalidHandle)
	}
	e, err := h.Graph().Exec(h)
	if err != nil {
		return err
	}
	if e.Subgraph() == nil {
		return fmt.Errorf("register %s: %w", h, ErrNotSubgraph)
	}
	d.constructs[h] = c
	return nil
}

// Construct возвращает конструкцию узла (Once, если не зарегистрирована).
func (d *Driver) Construct(h graph.Handle) Construct {
	if c, ok := d.constructs[h]; ok {
		return c
	}
	return Once{}
}

// RunSubgraph реализует graph.ControlFlow.
//
// Перед итерацией i все multiview узла parent и узлов подграфа получают
// выбор SelectIteration(i), слоты parent разрешаются заново. После прохода
// слоты подграфа откатываются к исходным значениям.
func (d *Driver) RunSubgraph(ctx context.Context, r *graph.Runner, parent graph.Handle, child *graph.Graph) error {
	c := d.Construct(parent)
	logger := telemetry.WithGraphID(d.logger, child).With("construct", c.Kind())
	if e, err := parent.Graph().Exec(parent); err == nil {
		logger = telemetry.WithExec(logger, parent, e.Command())
	}

	i := 0
	for ; c.Continue(i); i++ {
		if i >= d.maxIterations {
			return fmt.Errorf("%w: %d", ErrIterationLimit, d.maxIterations)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.selectIteration(i, parent, child); err != nil {
			return err
		}

		err := r.Run(ctx, child, nil, nil)
		child.Rewind()
		if err != nil {
			return err
		}
	}

	logger.Debug("subgraph finished", "iterations", i)
	return nil
}

// selectIteration переключает multiview на итерацию i.
func (d *Driver) selectIteration(i int, parent graph.Handle, child *graph.Graph) error {
	pg := parent.Graph()

	mvs, err := pg.Multiviews(parent)
	if err != nil {
		return err
	}
	for _, nh := range child.NestedExecs() {
		// Узлы вложенных подграфов переключает их собственный цикл
		if nh.Graph() != child {
			continue
		}
		own, err := child.Multiviews(nh)
		if err != nil {
			return err
		}
		mvs = append(mvs, own...)
	}

	seen := make(map[*tensor.Multiview]bool, len(mvs))
	for _, mv := range mvs {
		if seen[mv] {
			continue
		}
		seen[mv] = true
		if err := mv.SelectIteration(i); err != nil {
			return err
		}
	}

	return pg.Resolve(parent)
}
