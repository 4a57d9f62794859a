package graph

import (
	"container/heap"
)

// VisitFunc вызывается для каждого узла в порядке зависимостей.
// Ошибка останавливает обход.
type VisitFunc func(h Handle, e *Exec) error

// Visit обходит узлы области (sources, destinations) в порядке зависимостей.
//
// Узел с дочерним графом — атомарный шаг с точки зрения этого графа;
// рекурсивный обход дочернего графа — забота fn.
func (g *Graph) Visit(sources, destinations []Handle, fn VisitFunc) error {
	order, err := g.Order(sources, destinations)
	if err != nil {
		return err
	}
	for _, h := range order {
		if err := fn(h, g.execs[h.index]); err != nil {
			return err
		}
	}
	return nil
}

// Order возвращает порядок обхода области (sources, destinations).
//
// Область — узлы, достижимые из sources, из которых достижим хотя бы один
// destination. Пустые sources/destinations заменяются заданными в графе,
// а если их нет — узлами без входящих / без исходящих рёбер.
//
// Узел попадает в порядок только после всех своих предшественников из области.
// Из нескольких готовых узлов первым идёт узел с меньшим индексом, поэтому
// порядок детерминирован для одного и того же графа.
func (g *Graph) Order(sources, destinations []Handle) ([]Handle, error) {
	if g.freed {
		return nil, &HandleError{Op: "order", Err: ErrGraphFreed}
	}
	n := len(g.execs)
	if n == 0 {
		return nil, nil
	}

	srcs, err := g.scopeEnds("order", sources, g.sources, g.roots)
	if err != nil {
		return nil, err
	}
	dsts, err := g.scopeEnds("order", destinations, g.destinations, g.sinks)
	if err != nil {
		return nil, err
	}
	// Непустой граф без корней или стоков целиком лежит на циклах
	if len(srcs) == 0 || len(dsts) == 0 {
		return nil, &ScopeError{Index: 0, Err: ErrCycle}
	}

	// Прямой проход: всё, что достижимо из sources
	reach := make([]bool, n)
	stack := append([]int(nil), srcs...)
	for _, s := range srcs {
		reach[s] = true
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, j := range g.execs[i].outgoings {
			if !reach[j] {
				reach[j] = true
				stack = append(stack, j)
			}
		}
	}

	// Обратный проход: из достижимых оставляем те, что ведут к destinations
	incoming := make([][]int, n)
	for i := 0; i < n; i++ {
		if !reach[i] {
			continue
		}
		for _, j := range g.execs[i].outgoings {
			if reach[j] {
				incoming[j] = append(incoming[j], i)
			}
		}
	}
	scope := make([]bool, n)
	for _, d := range dsts {
		if !reach[d] {
			return nil, &ScopeError{Index: d, Err: ErrUnreachable}
		}
		if !scope[d] {
			scope[d] = true
			stack = append(stack, d)
		}
	}
	for len(stack) > 0 {
		j := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, i := range incoming[j] {
			if !scope[i] {
				scope[i] = true
				stack = append(stack, i)
			}
		}
	}

	// Алгоритм Кана внутри области, готовые узлы — по возрастанию индекса
	inDegree := make([]int, n)
	size := 0
	for i := 0; i < n; i++ {
		if !scope[i] {
			continue
		}
		size++
		for _, j := range g.execs[i].outgoings {
			if scope[j] {
				inDegree[j]++
			}
		}
	}
	ready := &indexHeap{}
	for i := 0; i < n; i++ {
		if scope[i] && inDegree[i] == 0 {
			heap.Push(ready, i)
		}
	}

	order := make([]Handle, 0, size)
	for ready.Len() > 0 {
		i := heap.Pop(ready).(int)
		order = append(order, Handle{graph: g, index: i})
		for _, j := range g.execs[i].outgoings {
			if !scope[j] {
				continue
			}
			inDegree[j]--
			if inDegree[j] == 0 {
				heap.Push(ready, j)
			}
		}
	}

	if len(order) != size {
		for i := 0; i < n; i++ {
			if scope[i] && inDegree[i] > 0 {
				return nil, &ScopeError{Index: i, Err: ErrCycle}
			}
		}
	}
	return order, nil
}

// scopeEnds выбирает концы области: явные → заданные в графе → вычисленные.
func (g *Graph) scopeEnds(op string, explicit, stored []Handle, fallback func() []int) ([]int, error) {
	hs := explicit
	if len(hs) == 0 {
		hs = stored
	}
	if len(hs) == 0 {
		return fallback(), nil
	}
	idx := make([]int, 0, len(hs))
	for _, h := range hs {
		if _, err := g.exec(op, h); err != nil {
			return nil, err
		}
		idx = append(idx, h.index)
	}
	return idx, nil
}

// roots возвращает узлы без входящих рёбер.
func (g *Graph) roots() []int {
	hasIncoming := make([]bool, len(g.execs))
	for _, e := range g.execs {
		for _, j := range e.outgoings {
			hasIncoming[j] = true
		}
	}
	var roots []int
	for i, has := range hasIncoming {
		if !has {
			roots = append(roots, i)
		}
	}
	return roots
}

// sinks возвращает узлы без исходящих рёбер.
func (g *Graph) sinks() []int {
	var sinks []int
	for i, e := range g.execs {
		if len(e.outgoings) == 0 {
			sinks = append(sinks, i)
		}
	}
	return sinks
}

// indexHeap — min-heap индексов узлов.
type indexHeap []int

func (h indexHeap) Len() int           { return len(h) }
func (h indexHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h indexHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *indexHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *indexHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}
