package backend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Dispatch — запись журнала выполненных операций.
type Dispatch struct {
	Command graph.Command
	Inputs  []string
	Outputs []string
}

// Registry — реестр kernels по имени команды.
//
// Реализует graph.Executor и graph.Autotuner.
type Registry struct {
	mu      sync.Mutex
	kernels map[string]*Kernel
	trace   []Dispatch
}

// NewRegistry создаёт реестр со встроенными kernels.
//
// Регистрирует: noop, copy, add, matmul.
func NewRegistry() *Registry {
	r := &Registry{kernels: make(map[string]*Kernel)}
	for _, k := range Builtins() {
		r.Register(k)
	}
	return r
}

// Register добавляет или заменяет kernel.
func (r *Registry) Register(k *Kernel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kernels[k.Name] = k
}

// Get возвращает kernel по имени команды.
func (r *Registry) Get(name string) (*Kernel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k, ok := r.kernels[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return k, nil
}

// Names возвращает имена зарегистрированных команд по алфавиту.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.kernels))
	for name := range r.kernels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Execute проверяет команду и тензоры и записывает диспетчеризацию в журнал.
func (r *Registry) Execute(_ context.Context, cmd graph.Command, _ graph.Hint, inputs, outputs []*tensor.Tensor) error {
	k, err := r.Get(cmd.Name)
	if err != nil {
		return err
	}
	if cmd.Backend != "" {
		if _, err := k.algorithm(cmd.Algorithm); err != nil {
			return err
		}
	}
	if err := k.validate(inputs, outputs); err != nil {
		return err
	}

	r.mu.Lock()
	r.trace = append(r.trace, Dispatch{
		Command: cmd,
		Inputs:  names(inputs),
		Outputs: names(outputs),
	})
	r.mu.Unlock()
	return nil
}

// Autotune выбирает самый дешёвый вариант, которому хватает workspace байт.
// При равной стоимости побеждает меньший номер.
func (r *Registry) Autotune(_ context.Context, cmd graph.Command, workspace int64, _ graph.Hint, inputs, outputs []*tensor.Tensor) (graph.Command, error) {
	k, err := r.Get(cmd.Name)
	if err != nil {
		return cmd, err
	}
	if err := k.validate(inputs, outputs); err != nil {
		return cmd, err
	}

	size := float64(outputBytes(outputs))
	count := float64(outputCount(outputs))

	best := -1
	bestCost := math.Inf(1)
	for i, a := range k.Algorithms {
		if need := int64(math.Ceil(a.Workspace * size)); need > workspace {
			continue
		}
		cost := a.Cost * count
		if best < 0 || cost < bestCost || (cost == bestCost && a.ID < k.Algorithms[best].ID) {
			best, bestCost = i, cost
		}
	}
	if best < 0 {
		return cmd, fmt.Errorf("%w: %s within %d bytes", ErrNoAlgorithm, k.Name, workspace)
	}

	a := k.Algorithms[best]
	return graph.Command{Name: cmd.Name, Backend: a.Backend, Algorithm: a.ID}, nil
}

// Trace возвращает копию журнала.
func (r *Registry) Trace() []Dispatch {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Dispatch, len(r.trace))
	copy(out, r.trace)
	return out
}

// Reset очищает журнал.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace = nil
}

func names(ts []*tensor.Tensor) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		if t == nil {
			out[i] = "-"
			continue
		}
		out[i] = t.String()
	}
	return out
}
