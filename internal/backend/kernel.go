package backend

import (
	"fmt"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Any — арность «сколько угодно».
const Any = -1

// Algorithm — вариант реализации операции.
type Algorithm struct {
	// ID — номер варианта, попадает в graph.Command.Algorithm.
	ID int

	// Backend — устройство или библиотека (cpu, gpu, ...).
	Backend string

	// Cost — относительная стоимость на элемент выхода.
	Cost float64

	// Workspace — дополнительная память в байтах на байт выхода.
	Workspace float64
}

// Kernel — описание операции.
type Kernel struct {
	Name    string
	Inputs  int
	Outputs int

	// Check проверяет формы тензоров (опционально).
	Check func(inputs, outputs []*tensor.Tensor) error

	Algorithms []Algorithm
}

// validate проверяет арность и пустые слоты, затем формы.
func (k *Kernel) validate(inputs, outputs []*tensor.Tensor) error {
	if k.Inputs != Any && len(inputs) != k.Inputs {
		return fmt.Errorf("%w: %s expects %d inputs, got %d", ErrArity, k.Name, k.Inputs, len(inputs))
	}
	if k.Outputs != Any && len(outputs) != k.Outputs {
		return fmt.Errorf("%w: %s expects %d outputs, got %d", ErrArity, k.Name, k.Outputs, len(outputs))
	}
	if k.Check == nil {
		return nil
	}
	for i, t := range inputs {
		if t == nil {
			return fmt.Errorf("%w: %s input %d", ErrMissingTensor, k.Name, i)
		}
	}
	for i, t := range outputs {
		if t == nil {
			return fmt.Errorf("%w: %s output %d", ErrMissingTensor, k.Name, i)
		}
	}
	return k.Check(inputs, outputs)
}

// algorithm ищет вариант по номеру.
func (k *Kernel) algorithm(id int) (Algorithm, error) {
	for _, a := range k.Algorithms {
		if a.ID == id {
			return a, nil
		}
	}
	return Algorithm{}, fmt.Errorf("%w: %s#%d", ErrUnknownAlgorithm, k.Name, id)
}

// outputBytes — суммарный размер выходов.
func outputBytes(outputs []*tensor.Tensor) uint64 {
	var n uint64
	for _, t := range outputs {
		if t != nil {
			n += t.Size()
		}
	}
	return n
}

// outputCount — суммарное число элементов выходов.
func outputCount(outputs []*tensor.Tensor) int {
	n := 0
	for _, t := range outputs {
		if t != nil {
			n += t.Count()
		}
	}
	return n
}
