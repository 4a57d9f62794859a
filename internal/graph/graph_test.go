package graph

import (
	"errors"
	"testing"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// --- helpers ---

func cmd(name string) Command {
	return Command{Name: name}
}

func values(ts ...tensor.Value) []tensor.Value {
	return ts
}

// chain строит граф из n узлов, соединённых цепочкой 0 → 1 → ... → n-1.
func chain(t *testing.T, n int) (*Graph, []Handle) {
	t.Helper()

	g := New()
	hs := make([]Handle, n)
	for i := range hs {
		h, err := g.AddExec(cmd("noop"), Hint{}, nil, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		hs[i] = h
	}
	for i := 1; i < n; i++ {
		if err := g.Connect(hs[i-1], hs[i]); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	return g, hs
}

// --- Construction Tests ---

func TestNew_Empty(t *testing.T) {
	g := New()

	if g.Len() != 0 {
		t.Errorf("expected 0 execs, got %d", g.Len())
	}
	if g.Parent() != nil {
		t.Error("new graph should have no parent")
	}
	if len(g.Sources()) != 0 || len(g.Destinations()) != 0 {
		t.Error("new graph should have no sources/destinations")
	}
	if len(g.Subgraphs()) != 0 {
		t.Error("new graph should have no subgraphs")
	}
	if New().ID() == g.ID() {
		t.Error("graphs should have distinct IDs")
	}
}

func TestAddExec_StableIndices(t *testing.T) {
	g := New()
	x := tensor.New(1, "x", tensor.Float32, 0, 4)
	y := tensor.New(2, "y", tensor.Float32, 16, 4)

	a, err := g.AddExec(cmd("copy"), Hint{Stride: []int{1}}, values(x), values(y))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, _ := g.AddExec(cmd("copy"), Hint{}, values(y), values(x))

	if a.Index() != 0 || b.Index() != 1 {
		t.Errorf("expected indices 0 and 1, got %d and %d", a.Index(), b.Index())
	}
	if a.Graph() != g {
		t.Error("handle should reference its graph")
	}

	e, err := g.Exec(a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Command().Name != "copy" {
		t.Errorf("expected command copy, got %s", e.Command().Name)
	}
	if got := e.Inputs(); len(got) != 1 || got[0] != tensor.Value(x) {
		t.Errorf("unexpected inputs: %v", got)
	}
	if e.HasNests() {
		t.Error("exec without multiview should not hold nests")
	}
}

func TestAddExec_CopiesSlots(t *testing.T) {
	g := New()
	x := tensor.New(1, "x", tensor.Float32, 0, 4)
	y := tensor.New(2, "y", tensor.Float32, 16, 4)

	inputs := values(x)
	hint := Hint{Stride: []int{2}}
	h, _ := g.AddExec(cmd("copy"), hint, inputs, nil)

	// Изменения исходных срезов не должны попадать в граф
	inputs[0] = y
	hint.Stride[0] = 7

	e, _ := g.Exec(h)
	if e.Inputs()[0] != tensor.Value(x) {
		t.Error("exec inputs should be copied on add")
	}
	if e.Hint().Stride[0] != 2 {
		t.Error("exec hint should be copied on add")
	}
}

func TestSetCommandAndHint(t *testing.T) {
	g, hs := chain(t, 1)

	if err := g.SetCommand(hs[0], Command{Name: "matmul", Backend: "cpu", Algorithm: 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.SetHint(hs[0], Hint{Border: []int{1, 1}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, _ := g.Exec(hs[0])
	if e.Command().String() != "matmul/cpu#2" {
		t.Errorf("expected matmul/cpu#2, got %s", e.Command())
	}
	if len(e.Hint().Border) != 2 {
		t.Errorf("expected border of 2, got %v", e.Hint().Border)
	}
}

// --- Handle Tests ---

func TestHandle_Validation(t *testing.T) {
	g, hs := chain(t, 2)
	_, otherHs := chain(t, 1)

	err := g.Connect(hs[0], otherHs[0])
	if !errors.Is(err, ErrForeignHandle) {
		t.Errorf("expected ErrForeignHandle, got %v", err)
	}

	var handleErr *HandleError
	if !errors.As(err, &handleErr) || handleErr.Op != "connect" {
		t.Errorf("expected *HandleError with op connect, got %v", err)
	}

	if _, err := g.Handle(5); !errors.Is(err, ErrInvalidHandle) {
		t.Errorf("expected ErrInvalidHandle, got %v", err)
	}
	if _, err := g.Exec(Handle{}); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("expected ErrForeignHandle for zero handle, got %v", err)
	}

	h, err := g.Handle(1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h != hs[1] {
		t.Error("Handle(1) should equal the handle returned by AddExec")
	}
}

// --- Edge Tests ---

func TestConnect_Duplicate(t *testing.T) {
	g, hs := chain(t, 2)

	if g.EdgeCount() != 1 {
		t.Fatalf("expected 1 edge, got %d", g.EdgeCount())
	}

	// Повторное соединение — отдельный статус, число рёбер не меняется
	err := g.Connect(hs[0], hs[1])
	if !errors.Is(err, ErrAlreadyConnected) {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}
	if g.EdgeCount() != 1 {
		t.Errorf("expected edge count unchanged, got %d", g.EdgeCount())
	}
	if !g.Connected(hs[0], hs[1]) {
		t.Error("edge 0 → 1 should exist")
	}
}

func TestDisconnect_Missing(t *testing.T) {
	g, hs := chain(t, 3)

	err := g.Disconnect(hs[0], hs[2])
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
	if g.EdgeCount() != 2 {
		t.Errorf("expected graph unchanged with 2 edges, got %d", g.EdgeCount())
	}
}

func TestDisconnect_PreservesOrder(t *testing.T) {
	g := New()
	var hs []Handle
	for i := 0; i < 4; i++ {
		h, _ := g.AddExec(cmd("noop"), Hint{}, nil, nil)
		hs = append(hs, h)
	}
	for _, dst := range hs[1:] {
		if err := g.Connect(hs[0], dst); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if err := g.Disconnect(hs[0], hs[2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	e, _ := g.Exec(hs[0])
	got := e.Outgoings()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected outgoings [1 3], got %v", got)
	}
}

// --- Sources / Destinations Tests ---

func TestSetDestinations_KeepsSources(t *testing.T) {
	g, hs := chain(t, 3)

	if err := g.SetSources(hs[1]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := g.SetDestinations(hs[2]); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if src := g.Sources(); len(src) != 1 || src[0] != hs[1] {
		t.Errorf("destinations should not touch sources, got %v", src)
	}
	if dst := g.Destinations(); len(dst) != 1 || dst[0] != hs[2] {
		t.Errorf("unexpected destinations %v", dst)
	}

	// Пустой список сбрасывает набор
	if err := g.SetSources(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(g.Sources()) != 0 {
		t.Error("empty SetSources should clear sources")
	}
}

func TestSetSources_RejectsForeign(t *testing.T) {
	g, _ := chain(t, 1)
	_, otherHs := chain(t, 1)

	if err := g.SetSources(otherHs[0]); !errors.Is(err, ErrForeignHandle) {
		t.Errorf("expected ErrForeignHandle, got %v", err)
	}
	if len(g.Sources()) != 0 {
		t.Error("failed SetSources should not change sources")
	}
}

// --- Subgraph Tests ---

func TestAddSubgraphExec_Attach(t *testing.T) {
	parent, _ := chain(t, 1)
	child, _ := chain(t, 2)

	h, err := parent.AddSubgraphExec(child, cmd("loop"), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if child.Parent() != parent {
		t.Error("child should reference its parent")
	}
	if subs := parent.Subgraphs(); len(subs) != 1 || subs[0] != child {
		t.Errorf("expected one subgraph, got %v", subs)
	}
	e, _ := parent.Exec(h)
	if e.Subgraph() != child {
		t.Error("exec should reference the child graph")
	}

	// Второй раз тот же подграф присоединить нельзя
	other := New()
	if _, err := other.AddSubgraphExec(child, cmd("loop"), nil, nil); !errors.Is(err, ErrSubgraphAttached) {
		t.Errorf("expected ErrSubgraphAttached, got %v", err)
	}
}

func TestAddSubgraphExec_Cycle(t *testing.T) {
	root := New()
	mid := New()
	if _, err := root.AddSubgraphExec(mid, cmd("loop"), nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := mid.AddSubgraphExec(mid, cmd("loop"), nil, nil); !errors.Is(err, ErrSubgraphAttached) && !errors.Is(err, ErrSubgraphCycle) {
		t.Errorf("expected attach error for self, got %v", err)
	}

	// Корень не присоединён, но является предком mid
	if _, err := mid.AddSubgraphExec(root, cmd("loop"), nil, nil); !errors.Is(err, ErrSubgraphCycle) {
		t.Errorf("expected ErrSubgraphCycle, got %v", err)
	}

	lone := New()
	if _, err := lone.AddSubgraphExec(lone, cmd("loop"), nil, nil); !errors.Is(err, ErrSubgraphCycle) {
		t.Errorf("expected ErrSubgraphCycle for self, got %v", err)
	}
}

// --- Free Tests ---

func TestFree_ParentAndChild(t *testing.T) {
	x := tensor.New(1, "x", tensor.Float32, 0, 4)
	y := tensor.New(2, "y", tensor.Float32, 16, 4)
	mv, err := tensor.NewMultiview("xy", tensor.K0N, 2, x, y)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	child, childHs := chain(t, 2)
	if err := child.SetIO(childHs[0], values(mv), values(x)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	parent, parentHs := chain(t, 2)
	loop, err := parent.AddSubgraphExec(child, cmd("loop"), values(mv), values(mv))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := parent.Connect(parentHs[1], loop); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stats := parent.Free()

	// Граф: 2 (parent) + 1 (loop); рёбра: 1 + 1 в parent, 1 в child;
	// nests: 2 у loop (вход и выход), 1 у узла child
	want := FreeStats{Graphs: 2, Execs: 5, Edges: 3, Nests: 3}
	if stats != want {
		t.Errorf("expected %+v, got %+v", want, stats)
	}
	if !parent.Freed() || !child.Freed() {
		t.Error("parent and child should be freed")
	}

	// Повторный вызов ничего не освобождает
	if again := parent.Free(); again != (FreeStats{}) {
		t.Errorf("expected zero stats on second free, got %+v", again)
	}
	if again := child.Free(); again != (FreeStats{}) {
		t.Errorf("expected zero stats on child second free, got %+v", again)
	}

	if _, err := parent.AddExec(cmd("noop"), Hint{}, nil, nil); !errors.Is(err, ErrGraphFreed) {
		t.Errorf("expected ErrGraphFreed, got %v", err)
	}
}

func TestFree_ChildFirst(t *testing.T) {
	x := tensor.New(1, "x", tensor.Float32, 0, 4)
	mv, _ := tensor.NewMultiview("x", tensor.K0N, 1, x)

	child := New()
	if _, err := child.AddExec(cmd("noop"), Hint{}, values(mv), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	parent := New()
	if _, err := parent.AddSubgraphExec(child, cmd("loop"), nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(parent.NestedExecs()) != 1 {
		t.Fatalf("expected child exec registered in parent, got %d", len(parent.NestedExecs()))
	}

	stats := child.Free()
	if stats.Nests != 1 || stats.Graphs != 1 {
		t.Errorf("unexpected child stats %+v", stats)
	}
	// Освобождённый подграф снимается с реестра живого родителя
	if len(parent.NestedExecs()) != 0 {
		t.Errorf("expected parent registry empty, got %v", parent.NestedExecs())
	}

	// Родитель не освобождает подграф второй раз
	stats = parent.Free()
	if stats.Graphs != 1 || stats.Nests != 0 {
		t.Errorf("expected only parent freed, got %+v", stats)
	}
}

func TestFree_NilGraph(t *testing.T) {
	var g *Graph
	if stats := g.Free(); stats != (FreeStats{}) {
		t.Errorf("expected zero stats for nil graph, got %+v", stats)
	}
}

func TestSlots_RejectNilPointers(t *testing.T) {
	g := New()
	x := tensor.New(1, "x", tensor.Float32, 0, 4)

	_, err := g.AddExec(cmd("noop"), Hint{}, values((*tensor.Multiview)(nil)), nil)
	if !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("expected ErrInvalidValue, got %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("rejected exec should not be added, got %d execs", g.Len())
	}

	h, err := g.AddExec(cmd("copy"), Hint{}, values(x), values(nil))
	if err != nil {
		t.Fatalf("empty slot should be accepted: %v", err)
	}
	if err := g.SetIO(h, values(x), values((*tensor.Tensor)(nil))); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue from SetIO, got %v", err)
	}
	if err := g.SetBroadcasts(h, values((*tensor.Multiview)(nil))); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue from SetBroadcasts, got %v", err)
	}

	e, err := g.Exec(h)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in := e.Inputs(); len(in) != 1 || in[0] != tensor.Value(x) {
		t.Errorf("rejected SetIO should leave slots unchanged, got %v", in)
	}
	if len(g.NestedExecs()) != 0 {
		t.Error("no exec should be registered")
	}
}

func TestAddSubgraphExec_NilChild(t *testing.T) {
	g := New()
	if _, err := g.AddSubgraphExec(nil, cmd("loop"), nil, nil); !errors.Is(err, ErrNoSubgraph) {
		t.Errorf("expected ErrNoSubgraph, got %v", err)
	}
	if g.Len() != 0 {
		t.Errorf("expected no execs, got %d", g.Len())
	}
}
