package graph

import (
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// tensorNest — состояние разрешения одного multiview-слота.
//
// tensors[0] — всегда исходный multiview, каким его установили в слот.
// Остальные уровни заполняются при разрешении и не переживают следующего:
// каждое разрешение начинается заново с уровня 0.
type tensorNest struct {
	index   int
	tensors []tensor.Value
}

func newTensorNest(mv *tensor.Multiview) *tensorNest {
	tensors := make([]tensor.Value, mv.Depth())
	tensors[0] = mv
	return &tensorNest{tensors: tensors}
}

// origin возвращает значение уровня 0.
func (n *tensorNest) origin() tensor.Value {
	return n.tensors[0]
}

// resolve проходит по текущему выбору на каждом уровне и возвращает лист.
func (n *tensorNest) resolve() (*tensor.Tensor, error) {
	n.index = 0
	v := n.tensors[0]
	for {
		mv, ok := v.(*tensor.Multiview)
		if !ok {
			break
		}
		v = mv.Selected()
		n.index++
		n.tensors[n.index] = v
	}
	t, ok := v.(*tensor.Tensor)
	if !ok || t == nil {
		return nil, tensor.ErrNoLeaf
	}
	return t, nil
}

// nestSet — nests узла, по одному на слот (nil для не-multiview слота).
type nestSet struct {
	inputs     []*tensorNest
	outputs    []*tensorNest
	broadcasts []*tensorNest
}

func (s *nestSet) count() int {
	if s == nil {
		return 0
	}
	n := 0
	for _, group := range [][]*tensorNest{s.inputs, s.outputs, s.broadcasts} {
		for _, nest := range group {
			if nest != nil {
				n++
			}
		}
	}
	return n
}

// hasMultiview проверяет, есть ли в слотах хотя бы один multiview.
func hasMultiview(groups ...[]tensor.Value) bool {
	for _, group := range groups {
		for _, v := range group {
			if tensor.IsMultiview(v) {
				return true
			}
		}
	}
	return false
}

// redoNests пересобирает nests одной группы слотов.
// Nest переиспользуется, только если в слоте лежит тот же multiview, что на его уровне 0.
func redoNests(old []*tensorNest, values []tensor.Value) []*tensorNest {
	nests := make([]*tensorNest, len(values))
	for i, v := range values {
		mv, ok := v.(*tensor.Multiview)
		if !ok {
			continue
		}
		if i < len(old) && old[i] != nil && old[i].origin() == tensor.Value(mv) {
			nests[i] = old[i]
			continue
		}
		nests[i] = newTensorNest(mv)
	}
	return nests
}

// redoNests пересобирает nests узла после замены слотов.
func (e *Exec) redoNests() {
	if !hasMultiview(e.inputs, e.outputs, e.broadcasts) {
		e.nests = nil
		return
	}
	old := e.nests
	if old == nil {
		old = &nestSet{}
	}
	e.nests = &nestSet{
		inputs:     redoNests(old.inputs, e.inputs),
		outputs:    redoNests(old.outputs, e.outputs),
		broadcasts: redoNests(old.broadcasts, e.broadcasts),
	}
}

// rewind возвращает в слоты исходные значения уровня 0.
func (e *Exec) rewind() {
	if e.nests == nil {
		return
	}
	rewindGroup(e.inputs, e.nests.inputs)
	rewindGroup(e.outputs, e.nests.outputs)
	rewindGroup(e.broadcasts, e.nests.broadcasts)
}

func rewindGroup(values []tensor.Value, nests []*tensorNest) {
	for i, nest := range nests {
		if nest != nil && i < len(values) {
			values[i] = nest.origin()
		}
	}
}

// resolve записывает в слоты конкретные тензоры по текущему выбору multiview.
func (e *Exec) resolve() error {
	if e.nests == nil {
		return nil
	}
	for _, grp := range []struct {
		values []tensor.Value
		nests  []*tensorNest
	}{
		{e.inputs, e.nests.inputs},
		{e.outputs, e.nests.outputs},
		{e.broadcasts, e.nests.broadcasts},
	} {
		for i, nest := range grp.nests {
			if nest == nil {
				continue
			}
			leaf, err := nest.resolve()
			if err != nil {
				return err
			}
			grp.values[i] = leaf
		}
	}
	return nil
}

// multiviews возвращает исходные multiview всех слотов узла.
func (e *Exec) multiviews() []*tensor.Multiview {
	if e.nests == nil {
		return nil
	}
	var mvs []*tensor.Multiview
	for _, group := range [][]*tensorNest{e.nests.inputs, e.nests.outputs, e.nests.broadcasts} {
		for _, nest := range group {
			if nest == nil {
				continue
			}
			if mv, ok := nest.origin().(*tensor.Multiview); ok {
				mvs = append(mvs, mv)
			}
		}
	}
	return mvs
}

// register добавляет узел в реестр nested execs графа и всех его предков.
func (g *Graph) register(h Handle) {
	for p := g; p != nil; p = p.parent {
		if !p.hasNestExec(h) {
			p.nestExecs = append(p.nestExecs, h)
		}
	}
}

// deregister удаляет узел из реестров графа и всех его предков за один проход.
func (g *Graph) deregister(h Handle) {
	for p := g; p != nil; p = p.parent {
		for i, nh := range p.nestExecs {
			if nh == h {
				p.nestExecs = append(p.nestExecs[:i], p.nestExecs[i+1:]...)
				break
			}
		}
	}
}

func (g *Graph) hasNestExec(h Handle) bool {
	for _, nh := range g.nestExecs {
		if nh == h {
			return true
		}
	}
	return false
}
