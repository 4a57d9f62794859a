package manifest

import (
	"errors"
	"fmt"

	"github.com/shaiso/tensorgraph/internal/controlflow"
	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Built — граф, собранный из описания.
type Built struct {
	Graph *graph.Graph

	// Nodes — handle каждого узла по имени, включая узлы подграфов.
	Nodes map[string]graph.Handle

	Tensors    map[string]*tensor.Tensor
	Multiviews map[string]*tensor.Multiview

	// Controls — конструкции узлов с подграфами.
	Controls map[graph.Handle]controlflow.Construct
}

// Build собирает граф. Описание должно пройти Validate.
//
// Тензоры получают ID по порядку объявления, начиная с 1.
func Build(m *Manifest) (*Built, error) {
	if err := Validate(m); err != nil {
		return nil, err
	}

	b := &Built{
		Nodes:      make(map[string]graph.Handle),
		Tensors:    make(map[string]*tensor.Tensor, len(m.Tensors)),
		Multiviews: make(map[string]*tensor.Multiview, len(m.Multiviews)),
		Controls:   make(map[graph.Handle]controlflow.Construct),
	}

	for i, ts := range m.Tensors {
		b.Tensors[ts.Name] = tensor.New(i+1, ts.Name, tensor.DType(ts.DType), ts.Offset, ts.Dims...)
	}
	for _, ms := range m.Multiviews {
		kind, err := tensor.ParseKind(ms.Kind)
		if err != nil {
			return nil, NewValidationError(ms.Name, "kind", err.Error(), ErrInvalidMultiview)
		}
		views := make([]tensor.Value, len(ms.Views))
		for i, name := range ms.Views {
			views[i] = b.value(name)
		}
		mv, err := tensor.NewMultiview(ms.Name, kind, ms.Repeat, views...)
		if err != nil {
			return nil, NewValidationError(ms.Name, "views", err.Error(), ErrInvalidMultiview)
		}
		b.Multiviews[ms.Name] = mv
	}

	g, err := b.buildGraph(&m.Graph)
	if err != nil {
		g.Free()
		return nil, err
	}
	b.Graph = g
	return b, nil
}

// value возвращает тензор или multiview по имени; EmptySlot — nil.
func (b *Built) value(name string) tensor.Value {
	if t, ok := b.Tensors[name]; ok {
		return t
	}
	if mv, ok := b.Multiviews[name]; ok {
		return mv
	}
	return nil
}

func (b *Built) values(names []string) []tensor.Value {
	if len(names) == 0 {
		return nil
	}
	out := make([]tensor.Value, len(names))
	for i, name := range names {
		out[i] = b.value(name)
	}
	return out
}

func (b *Built) buildGraph(spec *GraphSpec) (*graph.Graph, error) {
	g := graph.New()

	for i := range spec.Nodes {
		n := &spec.Nodes[i]
		inputs, outputs := b.values(n.Inputs), b.values(n.Outputs)

		var (
			h   graph.Handle
			err error
		)
		if n.Subgraph != nil {
			child, cerr := b.buildGraph(n.Subgraph)
			if cerr != nil {
				child.Free()
				return g, cerr
			}
			h, err = g.AddSubgraphExec(child, n.Command, inputs, outputs)
			if err == nil {
				err = g.SetHint(h, n.Hint)
			}
		} else {
			h, err = g.AddExec(n.Command, n.Hint, inputs, outputs)
		}
		if err != nil {
			return g, fmt.Errorf("node %s: %w", n.Name, err)
		}

		if len(n.Broadcasts) > 0 {
			if err := g.SetBroadcasts(h, b.values(n.Broadcasts)); err != nil {
				return g, fmt.Errorf("node %s: %w", n.Name, err)
			}
		}
		if n.Control != nil {
			b.Controls[h] = construct(n.Control)
		}
		b.Nodes[n.Name] = h
	}

	for _, e := range spec.Edges {
		// Повторное ребро в описании не ошибка
		if err := g.Connect(b.Nodes[e.From], b.Nodes[e.To]); err != nil && !errors.Is(err, graph.ErrAlreadyConnected) {
			return g, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}

	if err := g.SetSources(b.handles(spec.Sources)...); err != nil {
		return g, err
	}
	if err := g.SetDestinations(b.handles(spec.Destinations)...); err != nil {
		return g, err
	}
	return g, nil
}

func (b *Built) handles(names []string) []graph.Handle {
	hs := make([]graph.Handle, 0, len(names))
	for _, name := range names {
		hs = append(hs, b.Nodes[name])
	}
	return hs
}

// Handles переводит имена узлов в handles.
func (b *Built) Handles(names []string) ([]graph.Handle, error) {
	hs := make([]graph.Handle, 0, len(names))
	for _, name := range names {
		h, ok := b.Nodes[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownNode, name)
		}
		hs = append(hs, h)
	}
	return hs, nil
}

// Name возвращает имя узла по handle.
func (b *Built) Name(h graph.Handle) string {
	for name, nh := range b.Nodes {
		if nh == h {
			return name
		}
	}
	return h.String()
}

// Attach регистрирует конструкции в драйвере control flow.
func (b *Built) Attach(d *controlflow.Driver) error {
	for h, c := range b.Controls {
		if err := d.Register(h, c); err != nil {
			return err
		}
	}
	return nil
}

func construct(c *ControlSpec) controlflow.Construct {
	if c.Type == "if" {
		take := c.Take
		return controlflow.If{Cond: func() bool { return take }}
	}
	return controlflow.Counted(c.Count)
}
