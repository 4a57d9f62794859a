package backend

import (
	"fmt"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Builtins возвращает встроенные kernels.
func Builtins() []*Kernel {
	return []*Kernel{
		{
			Name:    "noop",
			Inputs:  Any,
			Outputs: Any,
			Algorithms: []Algorithm{
				{ID: 0, Backend: "cpu"},
			},
		},
		{
			Name:    "copy",
			Inputs:  1,
			Outputs: 1,
			Check:   sameShape,
			Algorithms: []Algorithm{
				{ID: 0, Backend: "cpu", Cost: 1},
				{ID: 1, Backend: "gpu", Cost: 0.25, Workspace: 1},
			},
		},
		{
			Name:    "add",
			Inputs:  2,
			Outputs: 1,
			Check:   sameShape,
			Algorithms: []Algorithm{
				{ID: 0, Backend: "cpu", Cost: 2},
				{ID: 1, Backend: "cpu", Cost: 1.5, Workspace: 0.5},
				{ID: 2, Backend: "gpu", Cost: 0.5, Workspace: 2},
			},
		},
		{
			Name:    "matmul",
			Inputs:  2,
			Outputs: 1,
			Check:   matmulShape,
			Algorithms: []Algorithm{
				{ID: 0, Backend: "cpu", Cost: 8},
				{ID: 1, Backend: "cpu", Cost: 4, Workspace: 1},
				{ID: 2, Backend: "gpu", Cost: 1, Workspace: 4},
			},
		},
	}
}

// sameShape требует одинакового числа элементов у всех тензоров.
func sameShape(inputs, outputs []*tensor.Tensor) error {
	all := append(append([]*tensor.Tensor(nil), inputs...), outputs...)
	if len(all) == 0 {
		return nil
	}
	want := all[0].Count()
	for _, t := range all[1:] {
		if t.Count() != want {
			return fmt.Errorf("%w: %s has %s, %s has %s",
				ErrShapeMismatch, all[0], all[0].Shape(), t, t.Shape())
		}
	}
	return nil
}

// matmulShape проверяет [m,k] x [k,n] = [m,n].
func matmulShape(inputs, outputs []*tensor.Tensor) error {
	a, b, c := inputs[0], inputs[1], outputs[0]
	if len(a.Dims) != 2 || len(b.Dims) != 2 || len(c.Dims) != 2 {
		return fmt.Errorf("%w: matmul needs 2-d tensors", ErrShapeMismatch)
	}
	if a.Dims[1] != b.Dims[0] || c.Dims[0] != a.Dims[0] || c.Dims[1] != b.Dims[1] {
		return fmt.Errorf("%w: %s x %s -> %s", ErrShapeMismatch, a.Shape(), b.Shape(), c.Shape())
	}
	return nil
}
