package controlflow

import "errors"

// Ошибки control flow.
var (
	// ErrIterationLimit — цикл не завершился за допустимое число итераций.
	ErrIterationLimit = errors.New("loop iteration limit exceeded")

	// ErrNotSubgraph — конструкция привязана к узлу без подграфа.
	ErrNotSubgraph = errors.New("exec has no subgraph")
)
