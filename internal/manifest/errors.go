package manifest

import (
	"errors"
	"fmt"
)

// Ошибки валидации описания.
var (
	// ErrEmptyGraph — граф не содержит узлов.
	ErrEmptyGraph = errors.New("graph has no nodes")

	// ErrEmptyName — у тензора, multiview или узла нет имени.
	ErrEmptyName = errors.New("empty name")

	// ErrDuplicateName — имя уже занято.
	ErrDuplicateName = errors.New("duplicate name")

	// ErrUnknownDType — неизвестный тип элементов.
	ErrUnknownDType = errors.New("unknown dtype")

	// ErrInvalidDims — неположительная размерность.
	ErrInvalidDims = errors.New("invalid dims")

	// ErrInvalidMultiview — некорректные параметры multiview.
	ErrInvalidMultiview = errors.New("invalid multiview")

	// ErrUnknownTensor — ссылка на несуществующий тензор или multiview.
	ErrUnknownTensor = errors.New("unknown tensor")

	// ErrEmptyCommand — у узла нет команды.
	ErrEmptyCommand = errors.New("node has no command")

	// ErrUnknownNode — ссылка на узел, которого нет в этом графе.
	ErrUnknownNode = errors.New("unknown node")

	// ErrSelfEdge — ребро из узла в него же.
	ErrSelfEdge = errors.New("node connected to itself")

	// ErrInvalidControl — неизвестный тип конструкции или отрицательное число итераций.
	ErrInvalidControl = errors.New("invalid control")

	// ErrControlWithoutSubgraph — конструкция задана у узла без подграфа.
	ErrControlWithoutSubgraph = errors.New("control requires subgraph")
)

// ValidationError — ошибка валидации с контекстом.
type ValidationError struct {
	Name    string // тензор или узел, где произошла ошибка
	Field   string // поле, вызвавшее ошибку
	Message string // описание ошибки
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *ValidationError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s.%s: %s", e.Name, e.Field, e.Message)
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError создаёт новую ошибку валидации.
func NewValidationError(name, field, message string, err error) *ValidationError {
	return &ValidationError{
		Name:    name,
		Field:   field,
		Message: message,
		Err:     err,
	}
}
