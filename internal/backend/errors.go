package backend

import "errors"

// Ошибки backend.
var (
	// ErrUnknownCommand — kernel для команды не зарегистрирован.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrArity — число входов или выходов не подходит kernel.
	ErrArity = errors.New("wrong number of tensors")

	// ErrShapeMismatch — формы тензоров несовместимы.
	ErrShapeMismatch = errors.New("tensor shape mismatch")

	// ErrMissingTensor — обязательный слот пуст.
	ErrMissingTensor = errors.New("missing tensor")

	// ErrUnknownAlgorithm — у kernel нет варианта с таким номером.
	ErrUnknownAlgorithm = errors.New("unknown algorithm")

	// ErrNoAlgorithm — ни один вариант не укладывается в бюджет workspace.
	ErrNoAlgorithm = errors.New("no algorithm fits workspace")
)
