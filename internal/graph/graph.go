package graph

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Graph — исполняемый граф exec-узлов.
//
// Узлы добавляются только в конец и никогда не удаляются по одному:
// граф освобождается целиком через Free. Дочерние графы (тела циклов
// и условий) принадлежат родителю; parent — обратная ссылка без владения.
type Graph struct {
	id     uuid.UUID
	parent *Graph

	execs []*Exec

	// sources/destinations — точки входа и выхода обхода по умолчанию.
	sources      []Handle
	destinations []Handle

	subgraphs []*Graph

	// nestExecs — узлы этого графа и всех потомков, держащие tensor nests.
	nestExecs []Handle

	freed bool
}

// New создаёт пустой граф.
func New() *Graph {
	return &Graph{id: uuid.New()}
}

// ID возвращает идентификатор графа.
func (g *Graph) ID() uuid.UUID {
	return g.id
}

// Parent возвращает родительский граф или nil для корня.
func (g *Graph) Parent() *Graph {
	return g.parent
}

// Len возвращает число узлов.
func (g *Graph) Len() int {
	return len(g.execs)
}

// Handle возвращает handle узла по индексу.
func (g *Graph) Handle(index int) (Handle, error) {
	h := Handle{graph: g, index: index}
	if _, err := g.exec("handle", h); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// Exec возвращает узел для чтения.
func (g *Graph) Exec(h Handle) (*Exec, error) {
	return g.exec("exec", h)
}

// Subgraphs возвращает дочерние графы в порядке присоединения.
func (g *Graph) Subgraphs() []*Graph {
	out := make([]*Graph, len(g.subgraphs))
	copy(out, g.subgraphs)
	return out
}

// AddExec добавляет узел с операцией cmd.
//
// Срезы inputs/outputs копируются. Если хотя бы один слот содержит multiview,
// узел получает tensor nests и регистрируется в реестрах графа и его предков.
func (g *Graph) AddExec(cmd Command, hint Hint, inputs, outputs []tensor.Value) (Handle, error) {
	if g.freed {
		return Handle{}, &HandleError{Op: "add_exec", Err: ErrGraphFreed}
	}
	if err := checkValues(inputs, outputs); err != nil {
		return Handle{}, &HandleError{Op: "add_exec", Err: err}
	}
	return g.addExec(cmd, hint, inputs, outputs, nil), nil
}

// AddSubgraphExec добавляет узел, вызывающий дочерний граф child.
//
// child присоединяется к графу: становится его подграфом, получает
// обратную ссылку parent, а его реестр nested execs распространяется
// на этот граф и всех предков.
func (g *Graph) AddSubgraphExec(child *Graph, cmd Command, inputs, outputs []tensor.Value) (Handle, error) {
	if child == nil {
		return Handle{}, &HandleError{Op: "add_subgraph", Err: ErrNoSubgraph}
	}
	if g.freed || child.freed {
		return Handle{}, &HandleError{Op: "add_subgraph", Err: ErrGraphFreed}
	}
	if err := checkValues(inputs, outputs); err != nil {
		return Handle{}, &HandleError{Op: "add_subgraph", Err: err}
	}
	if child.parent != nil {
		return Handle{}, &HandleError{Op: "add_subgraph", Err: ErrSubgraphAttached}
	}
	for p := g; p != nil; p = p.parent {
		if p == child {
			return Handle{}, &HandleError{Op: "add_subgraph", Err: ErrSubgraphCycle}
		}
	}

	child.parent = g
	g.subgraphs = append(g.subgraphs, child)
	for _, nh := range child.nestExecs {
		for p := g; p != nil; p = p.parent {
			if !p.hasNestExec(nh) {
				p.nestExecs = append(p.nestExecs, nh)
			}
		}
	}

	return g.addExec(cmd, Hint{}, inputs, outputs, child), nil
}

func (g *Graph) addExec(cmd Command, hint Hint, inputs, outputs []tensor.Value, child *Graph) Handle {
	e := &Exec{
		cmd:      cmd,
		hint:     hint.clone(),
		inputs:   cloneValues(inputs),
		outputs:  cloneValues(outputs),
		subgraph: child,
	}
	h := Handle{graph: g, index: len(g.execs)}
	g.execs = append(g.execs, e)

	e.redoNests()
	if e.nests != nil {
		g.register(h)
	}
	return h
}

// SetIO заменяет входные и выходные слоты узла целиком.
//
// Перед заменой узел снимается с регистрации и его слоты откатываются
// к исходным значениям, чтобы разрешённая ссылка не пережила переназначение.
// После замены nests пересобираются и узел регистрируется снова, если нужно.
func (g *Graph) SetIO(h Handle, inputs, outputs []tensor.Value) error {
	e, err := g.exec("set_io", h)
	if err != nil {
		return err
	}
	if err := checkValues(inputs, outputs); err != nil {
		return &HandleError{Op: "set_io", Handle: h, Err: err}
	}
	g.beforeSlotChange(h, e)
	e.inputs = cloneValues(inputs)
	e.outputs = cloneValues(outputs)
	g.afterSlotChange(h, e)
	return nil
}

// SetBroadcasts заменяет broadcast-слоты узла целиком. Контракт тот же, что у SetIO.
func (g *Graph) SetBroadcasts(h Handle, broadcasts []tensor.Value) error {
	e, err := g.exec("set_broadcasts", h)
	if err != nil {
		return err
	}
	if err := checkValues(broadcasts); err != nil {
		return &HandleError{Op: "set_broadcasts", Handle: h, Err: err}
	}
	g.beforeSlotChange(h, e)
	e.broadcasts = cloneValues(broadcasts)
	g.afterSlotChange(h, e)
	return nil
}

func (g *Graph) beforeSlotChange(h Handle, e *Exec) {
	if e.nests != nil {
		g.deregister(h)
	}
	e.rewind()
}

func (g *Graph) afterSlotChange(h Handle, e *Exec) {
	e.redoNests()
	if e.nests != nil {
		g.register(h)
	}
}

// SetHint обновляет подсказку узла.
func (g *Graph) SetHint(h Handle, hint Hint) error {
	e, err := g.exec("set_hint", h)
	if err != nil {
		return err
	}
	e.hint = hint.clone()
	return nil
}

// SetCommand заменяет дескриптор операции узла.
func (g *Graph) SetCommand(h Handle, cmd Command) error {
	e, err := g.exec("set_command", h)
	if err != nil {
		return err
	}
	e.cmd = cmd
	return nil
}

// Connect добавляет ребро src → dst.
//
// Повторное соединение той же пары ничего не меняет и возвращает ErrAlreadyConnected.
func (g *Graph) Connect(src, dst Handle) error {
	e, err := g.exec("connect", src)
	if err != nil {
		return err
	}
	if _, err := g.exec("connect", dst); err != nil {
		return err
	}
	for _, d := range e.outgoings {
		if d == dst.index {
			return &HandleError{Op: "connect", Handle: dst, Err: ErrAlreadyConnected}
		}
	}
	e.outgoings = append(e.outgoings, dst.index)
	return nil
}

// Disconnect удаляет ребро src → dst. Порядок остальных рёбер сохраняется.
func (g *Graph) Disconnect(src, dst Handle) error {
	e, err := g.exec("disconnect", src)
	if err != nil {
		return err
	}
	if _, err := g.exec("disconnect", dst); err != nil {
		return err
	}
	for i, d := range e.outgoings {
		if d == dst.index {
			e.outgoings = append(e.outgoings[:i], e.outgoings[i+1:]...)
			return nil
		}
	}
	return &HandleError{Op: "disconnect", Handle: dst, Err: ErrNotConnected}
}

// Connected проверяет наличие ребра src → dst.
func (g *Graph) Connected(src, dst Handle) bool {
	e, err := g.exec("connected", src)
	if err != nil || dst.graph != g {
		return false
	}
	for _, d := range e.outgoings {
		if d == dst.index {
			return true
		}
	}
	return false
}

// EdgeCount возвращает общее число рёбер графа (без подграфов).
func (g *Graph) EdgeCount() int {
	n := 0
	for _, e := range g.execs {
		n += len(e.outgoings)
	}
	return n
}

// SetSources задаёт точки входа обхода по умолчанию. Пустой список сбрасывает их.
func (g *Graph) SetSources(hs ...Handle) error {
	if err := g.checkAll("set_sources", hs); err != nil {
		return err
	}
	g.sources = cloneHandles(hs)
	return nil
}

// SetDestinations задаёт точки выхода обхода по умолчанию. Пустой список сбрасывает их.
func (g *Graph) SetDestinations(hs ...Handle) error {
	if err := g.checkAll("set_destinations", hs); err != nil {
		return err
	}
	g.destinations = cloneHandles(hs)
	return nil
}

// Sources возвращает точки входа по умолчанию.
func (g *Graph) Sources() []Handle {
	return cloneHandles(g.sources)
}

// Destinations возвращает точки выхода по умолчанию.
func (g *Graph) Destinations() []Handle {
	return cloneHandles(g.destinations)
}

// NestedExecs возвращает узлы этого графа и всех потомков, держащие tensor nests.
func (g *Graph) NestedExecs() []Handle {
	return cloneHandles(g.nestExecs)
}

// Resolve разрешает multiview-слоты узла в конкретные тензоры по текущему выбору.
func (g *Graph) Resolve(h Handle) error {
	e, err := g.exec("resolve", h)
	if err != nil {
		return err
	}
	if err := e.resolve(); err != nil {
		return &HandleError{Op: "resolve", Handle: h, Err: err}
	}
	return nil
}

// Multiviews возвращает исходные multiview из слотов узла.
func (g *Graph) Multiviews(h Handle) ([]*tensor.Multiview, error) {
	e, err := g.exec("multiviews", h)
	if err != nil {
		return nil, err
	}
	return e.multiviews(), nil
}

// Rewind откатывает к исходным значениям слоты всех зарегистрированных узлов,
// включая узлы подграфов.
func (g *Graph) Rewind() {
	for _, nh := range g.nestExecs {
		if nh.graph.freed || nh.index >= len(nh.graph.execs) {
			continue
		}
		nh.graph.execs[nh.index].rewind()
	}
}

// FreeStats — что было освобождено вызовом Free.
type FreeStats struct {
	Graphs int
	Execs  int
	Edges  int
	Nests  int
}

func (s *FreeStats) add(o FreeStats) {
	s.Graphs += o.Graphs
	s.Execs += o.Execs
	s.Edges += o.Edges
	s.Nests += o.Nests
}

// Free освобождает граф: сначала подграфы, затем массивы узлов, затем сами узлы.
//
// Повторный вызов ничего не делает и возвращает нулевую статистику.
func (g *Graph) Free() FreeStats {
	var stats FreeStats
	if g == nil || g.freed {
		return stats
	}

	for _, sub := range g.subgraphs {
		stats.add(sub.Free())
	}
	g.subgraphs = nil

	// Узлы этого графа и потомков больше не должны числиться у живых предков
	if g.parent != nil && !g.parent.freed {
		for _, nh := range g.nestExecs {
			g.parent.deregister(nh)
		}
	}

	for _, e := range g.execs {
		if e == nil {
			continue
		}
		stats.Edges += len(e.outgoings)
		stats.Nests += e.release()
		stats.Execs++
	}
	g.execs = nil
	g.sources = nil
	g.destinations = nil
	g.nestExecs = nil
	g.freed = true
	stats.Graphs++

	return stats
}

// Freed сообщает, освобождён ли граф.
func (g *Graph) Freed() bool {
	return g.freed
}

// exec проверяет handle и возвращает узел.
func (g *Graph) exec(op string, h Handle) (*Exec, error) {
	if g.freed {
		return nil, &HandleError{Op: op, Handle: h, Err: ErrGraphFreed}
	}
	if h.graph != g {
		return nil, &HandleError{Op: op, Handle: h, Err: ErrForeignHandle}
	}
	if h.index < 0 || h.index >= len(g.execs) {
		return nil, &HandleError{Op: op, Handle: h, Err: ErrInvalidHandle}
	}
	return g.execs[h.index], nil
}

func (g *Graph) checkAll(op string, hs []Handle) error {
	for _, h := range hs {
		if _, err := g.exec(op, h); err != nil {
			return err
		}
	}
	return nil
}

// checkValues отклоняет nil-указатели в слотах.
func checkValues(groups ...[]tensor.Value) error {
	for _, group := range groups {
		for i, v := range group {
			if v != nil && tensor.IsNil(v) {
				return fmt.Errorf("%w: slot %d", ErrInvalidValue, i)
			}
		}
	}
	return nil
}

func cloneHandles(hs []Handle) []Handle {
	if len(hs) == 0 {
		return nil
	}
	out := make([]Handle, len(hs))
	copy(out, hs)
	return out
}

func shortID(g *Graph) string {
	return g.id.String()[:8]
}
