package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

func f32(id int, name string, dims ...int) *tensor.Tensor {
	return tensor.New(id, name, tensor.Float32, uint64(id)*1024, dims...)
}

func TestRegistry_Builtins(t *testing.T) {
	r := NewRegistry()

	want := []string{"add", "copy", "matmul", "noop"}
	got := r.Names()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("expected %s at %d, got %s", want[i], i, got[i])
		}
	}

	if _, err := r.Get("conv"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestExecute_Validation(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	x := f32(1, "x", 2, 3)
	y := f32(2, "y", 6)
	z := f32(3, "z", 4)

	// Одинаковое число элементов — форма не важна
	if err := r.Execute(ctx, graph.Command{Name: "copy"}, graph.Hint{}, []*tensor.Tensor{x}, []*tensor.Tensor{y}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	tests := []struct {
		name    string
		cmd     graph.Command
		inputs  []*tensor.Tensor
		outputs []*tensor.Tensor
		want    error
	}{
		{"unknown command", graph.Command{Name: "conv"}, nil, nil, ErrUnknownCommand},
		{"arity", graph.Command{Name: "add"}, []*tensor.Tensor{x}, []*tensor.Tensor{y}, ErrArity},
		{"shape", graph.Command{Name: "copy"}, []*tensor.Tensor{x}, []*tensor.Tensor{z}, ErrShapeMismatch},
		{"missing", graph.Command{Name: "copy"}, []*tensor.Tensor{nil}, []*tensor.Tensor{y}, ErrMissingTensor},
		{"algorithm", graph.Command{Name: "copy", Backend: "cpu", Algorithm: 9}, []*tensor.Tensor{x}, []*tensor.Tensor{y}, ErrUnknownAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Execute(ctx, tt.cmd, graph.Hint{}, tt.inputs, tt.outputs)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	// В журнал попадают только успешные вызовы
	trace := r.Trace()
	if len(trace) != 1 {
		t.Fatalf("expected 1 dispatch in trace, got %d", len(trace))
	}
	if trace[0].Inputs[0] != "x" || trace[0].Outputs[0] != "y" {
		t.Errorf("unexpected trace entry %+v", trace[0])
	}

	r.Reset()
	if len(r.Trace()) != 0 {
		t.Error("trace should be empty after reset")
	}
}

func TestExecute_Matmul(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	a := f32(1, "a", 2, 3)
	b := f32(2, "b", 3, 4)
	c := f32(3, "c", 2, 4)
	bad := f32(4, "bad", 4, 2)

	cmd := graph.Command{Name: "matmul"}
	if err := r.Execute(ctx, cmd, graph.Hint{}, []*tensor.Tensor{a, b}, []*tensor.Tensor{c}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := r.Execute(ctx, cmd, graph.Hint{}, []*tensor.Tensor{a, b}, []*tensor.Tensor{bad}); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestAutotune_Budget(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()
	a := f32(1, "a", 2, 2)
	b := f32(2, "b", 2, 2)
	c := f32(3, "c", 2, 2) // 16 байт

	in := []*tensor.Tensor{a, b}
	out := []*tensor.Tensor{c}

	tests := []struct {
		workspace int64
		backend   string
		algorithm int
	}{
		{0, "cpu", 0},
		{16, "cpu", 1},
		{64, "gpu", 2},
		{1 << 20, "gpu", 2},
	}

	for _, tt := range tests {
		cmd, err := r.Autotune(ctx, graph.Command{Name: "matmul"}, tt.workspace, graph.Hint{}, in, out)
		if err != nil {
			t.Fatalf("workspace %d: unexpected error: %v", tt.workspace, err)
		}
		if cmd.Backend != tt.backend || cmd.Algorithm != tt.algorithm {
			t.Errorf("workspace %d: expected %s#%d, got %s", tt.workspace, tt.backend, tt.algorithm, cmd)
		}
	}
}

func TestAutotune_NoAlgorithm(t *testing.T) {
	r := NewRegistry()
	r.Register(&Kernel{
		Name:    "fft",
		Inputs:  1,
		Outputs: 1,
		Algorithms: []Algorithm{
			{ID: 0, Backend: "gpu", Cost: 1, Workspace: 2},
		},
	})

	x := f32(1, "x", 8)
	y := f32(2, "y", 8)
	_, err := r.Autotune(context.Background(), graph.Command{Name: "fft"}, 8, graph.Hint{}, []*tensor.Tensor{x}, []*tensor.Tensor{y})
	if !errors.Is(err, ErrNoAlgorithm) {
		t.Errorf("expected ErrNoAlgorithm, got %v", err)
	}
}

func TestRegistry_DrivesGraph(t *testing.T) {
	x := f32(1, "x", 4)
	y := f32(2, "y", 4)
	z := f32(3, "z", 4)

	g := graph.New()
	a, _ := g.AddExec(graph.Command{Name: "copy"}, graph.Hint{}, []tensor.Value{x}, []tensor.Value{y})
	b, _ := g.AddExec(graph.Command{Name: "add"}, graph.Hint{}, []tensor.Value{x, y}, []tensor.Value{z})
	if err := g.Connect(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	r := NewRegistry()
	runner := graph.NewRunner(graph.Config{Executor: r, Autotuner: r, Workspace: 1 << 10})

	if err := runner.Autotune(context.Background(), g, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := runner.Run(context.Background(), g, nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	trace := r.Trace()
	if len(trace) != 2 {
		t.Fatalf("expected 2 dispatches, got %d", len(trace))
	}
	if trace[0].Command.String() != "copy/gpu#1" || trace[1].Command.String() != "add/gpu#2" {
		t.Errorf("expected tuned commands, got %s and %s", trace[0].Command, trace[1].Command)
	}
}
