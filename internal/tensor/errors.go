package tensor

import "errors"

// Ошибки тензоров.
var (
	// ErrInvalidMultiview — некорректная структура multiview (kind, repeat, число альтернатив).
	ErrInvalidMultiview = errors.New("invalid multiview")

	// ErrSelectionOutOfRange — индекс альтернативы вне диапазона.
	ErrSelectionOutOfRange = errors.New("multiview selection out of range")

	// ErrNoLeaf — цепочка выбранных альтернатив не заканчивается конкретным тензором.
	ErrNoLeaf = errors.New("multiview selection has no concrete tensor")
)
