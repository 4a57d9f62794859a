package manifest

import (
	"fmt"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Допустимые типы конструкций.
var validControls = map[string]bool{
	"loop": true,
	"if":   true,
}

// Validate выполняет полную валидацию описания.
//
// Проверяет:
// - Наличие узлов в каждом графе
// - Уникальность имён тензоров, multiview и узлов
// - Типы и размерности тензоров
// - Параметры multiview и ссылки на альтернативы
// - Ссылки слотов, рёбер, sources/destinations
// - Конструкции control flow
//
// Циклы в рёбрах не проверяются: их находит обход графа.
func Validate(m *Manifest) error {
	if m == nil {
		return ErrEmptyGraph
	}

	values := make(map[string]bool)

	for i := range m.Tensors {
		if err := validateTensor(&m.Tensors[i], values); err != nil {
			return err
		}
	}
	for i := range m.Multiviews {
		if err := validateMultiview(&m.Multiviews[i], values); err != nil {
			return err
		}
	}

	nodes := make(map[string]bool)
	return validateGraph(&m.Graph, values, nodes)
}

func validateTensor(t *TensorSpec, values map[string]bool) error {
	if t.Name == "" || t.Name == EmptySlot {
		return NewValidationError("", "name", "tensor has empty name", ErrEmptyName)
	}
	if values[t.Name] {
		return NewValidationError(t.Name, "name",
			fmt.Sprintf("duplicate tensor name: %s", t.Name), ErrDuplicateName)
	}
	values[t.Name] = true

	if tensor.DType(t.DType).ElemSize() == 0 {
		return NewValidationError(t.Name, "dtype",
			fmt.Sprintf("unknown dtype: %s", t.DType), ErrUnknownDType)
	}
	for _, d := range t.Dims {
		if d <= 0 {
			return NewValidationError(t.Name, "dims",
				fmt.Sprintf("dimension must be positive, got %d", d), ErrInvalidDims)
		}
	}
	return nil
}

func validateMultiview(mv *MultiviewSpec, values map[string]bool) error {
	if mv.Name == "" || mv.Name == EmptySlot {
		return NewValidationError("", "name", "multiview has empty name", ErrEmptyName)
	}
	if values[mv.Name] {
		return NewValidationError(mv.Name, "name",
			fmt.Sprintf("duplicate tensor name: %s", mv.Name), ErrDuplicateName)
	}

	kind, err := tensor.ParseKind(mv.Kind)
	if err != nil {
		return NewValidationError(mv.Name, "kind", err.Error(), ErrInvalidMultiview)
	}
	if mv.Repeat < 1 {
		return NewValidationError(mv.Name, "repeat",
			fmt.Sprintf("repeat must be positive, got %d", mv.Repeat), ErrInvalidMultiview)
	}
	if want := kind.Prefix() + mv.Repeat; len(mv.Views) != want {
		return NewValidationError(mv.Name, "views",
			fmt.Sprintf("%s with repeat %d needs %d views, got %d", kind, mv.Repeat, want, len(mv.Views)),
			ErrInvalidMultiview)
	}

	// Альтернативы ссылаются только на объявленное выше, поэтому циклов нет
	for _, v := range mv.Views {
		if !values[v] {
			return NewValidationError(mv.Name, "views",
				fmt.Sprintf("unknown view: %s", v), ErrUnknownTensor)
		}
	}
	values[mv.Name] = true
	return nil
}

func validateGraph(g *GraphSpec, values, nodes map[string]bool) error {
	if len(g.Nodes) == 0 {
		return ErrEmptyGraph
	}

	// Имена этого графа — для рёбер и sources/destinations
	local := make(map[string]bool, len(g.Nodes))

	for i := range g.Nodes {
		n := &g.Nodes[i]
		if err := validateNode(n, values, nodes); err != nil {
			return err
		}
		local[n.Name] = true
	}

	for _, e := range g.Edges {
		if !local[e.From] {
			return NewValidationError(e.From, "edges",
				fmt.Sprintf("edge from unknown node: %s", e.From), ErrUnknownNode)
		}
		if !local[e.To] {
			return NewValidationError(e.From, "edges",
				fmt.Sprintf("edge to unknown node: %s", e.To), ErrUnknownNode)
		}
		if e.From == e.To {
			return NewValidationError(e.From, "edges", "node connected to itself", ErrSelfEdge)
		}
	}

	for _, field := range []struct {
		name  string
		names []string
	}{
		{"sources", g.Sources},
		{"destinations", g.Destinations},
	} {
		for _, name := range field.names {
			if !local[name] {
				return NewValidationError(name, field.name,
					fmt.Sprintf("unknown node in %s: %s", field.name, name), ErrUnknownNode)
			}
		}
	}
	return nil
}

func validateNode(n *NodeSpec, values, nodes map[string]bool) error {
	if n.Name == "" {
		return NewValidationError("", "name", "node has empty name", ErrEmptyName)
	}
	if nodes[n.Name] {
		return NewValidationError(n.Name, "name",
			fmt.Sprintf("duplicate node name: %s", n.Name), ErrDuplicateName)
	}
	nodes[n.Name] = true

	if n.Command.Name == "" {
		return NewValidationError(n.Name, "command", "node has no command", ErrEmptyCommand)
	}

	for _, slot := range []struct {
		field string
		refs  []string
	}{
		{"inputs", n.Inputs},
		{"outputs", n.Outputs},
		{"broadcasts", n.Broadcasts},
	} {
		for _, ref := range slot.refs {
			if ref != EmptySlot && !values[ref] {
				return NewValidationError(n.Name, slot.field,
					fmt.Sprintf("unknown tensor: %s", ref), ErrUnknownTensor)
			}
		}
	}

	if n.Control != nil {
		if n.Subgraph == nil {
			return NewValidationError(n.Name, "control",
				"control requires subgraph", ErrControlWithoutSubgraph)
		}
		if !validControls[n.Control.Type] {
			return NewValidationError(n.Name, "control",
				fmt.Sprintf("unknown control type: %s", n.Control.Type), ErrInvalidControl)
		}
		if n.Control.Count < 0 {
			return NewValidationError(n.Name, "control",
				fmt.Sprintf("loop count must not be negative, got %d", n.Control.Count), ErrInvalidControl)
		}
	}

	if n.Subgraph != nil {
		if err := validateGraph(n.Subgraph, values, nodes); err != nil {
			return err
		}
	}
	return nil
}
