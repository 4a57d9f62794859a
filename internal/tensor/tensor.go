package tensor

import "fmt"

// DType — тип элементов тензора.
type DType string

// Поддерживаемые типы элементов.
const (
	Float32 DType = "f32"
	Float16 DType = "f16"
	Float64 DType = "f64"
	Int32   DType = "i32"
	Int64   DType = "i64"
	Uint8   DType = "u8"
)

// ElemSize возвращает размер элемента в байтах.
// Для неизвестного типа возвращает 0.
func (d DType) ElemSize() int {
	switch d {
	case Float32, Int32:
		return 4
	case Float16:
		return 2
	case Float64, Int64:
		return 8
	case Uint8:
		return 1
	default:
		return 0
	}
}

// Value — значение слота exec-узла: *Tensor или *Multiview.
//
// Интерфейс закрыт (неэкспортируемый метод), поэтому других вариантов нет.
// nil означает пустой слот.
type Value interface {
	isValue()
	String() string
}

// Tensor — конкретный тензор.
//
// Память тензора принадлежит внешнему аллокатору; граф хранит только ссылки.
type Tensor struct {
	// ID — идентификатор тензора (уникален в рамках manifest/аллокатора).
	ID int

	// Name — человекочитаемое имя.
	Name string

	// DType — тип элементов.
	DType DType

	// Dims — размерности.
	Dims []int

	// Offset — начало диапазона памяти в адресном пространстве устройства.
	// Используется только диагностикой (зоны алиасинга).
	Offset uint64
}

func (*Tensor) isValue() {}

// New создаёт тензор.
func New(id int, name string, dtype DType, offset uint64, dims ...int) *Tensor {
	d := make([]int, len(dims))
	copy(d, dims)
	return &Tensor{
		ID:     id,
		Name:   name,
		DType:  dtype,
		Dims:   d,
		Offset: offset,
	}
}

// Count возвращает число элементов.
func (t *Tensor) Count() int {
	if len(t.Dims) == 0 {
		return 0
	}
	n := 1
	for _, d := range t.Dims {
		n *= d
	}
	return n
}

// Size возвращает размер тензора в байтах.
func (t *Tensor) Size() uint64 {
	return uint64(t.Count() * t.DType.ElemSize())
}

// Span возвращает включительный диапазон памяти [start, end].
// Для пустого тензора end == start.
func (t *Tensor) Span() (start, end uint64) {
	size := t.Size()
	if size == 0 {
		return t.Offset, t.Offset
	}
	return t.Offset, t.Offset + size - 1
}

// Shape возвращает размерности в виде "2x3x4".
func (t *Tensor) Shape() string {
	if len(t.Dims) == 0 {
		return "-"
	}
	s := fmt.Sprintf("%d", t.Dims[0])
	for _, d := range t.Dims[1:] {
		s += fmt.Sprintf("x%d", d)
	}
	return s
}

func (t *Tensor) String() string {
	if t.Name != "" {
		return t.Name
	}
	return fmt.Sprintf("tensor%d", t.ID)
}

// Concrete возвращает тензор, если v — лист, иначе nil.
func Concrete(v Value) *Tensor {
	t, _ := v.(*Tensor)
	return t
}

// IsMultiview проверяет, является ли значение полиморфным.
// Nil-указатель *Multiview полиморфным не считается.
func IsMultiview(v Value) bool {
	mv, ok := v.(*Multiview)
	return ok && mv != nil
}

// IsNil сообщает, что значение пусто: nil или nil-указатель
// *Tensor / *Multiview внутри интерфейса.
func IsNil(v Value) bool {
	switch x := v.(type) {
	case nil:
		return true
	case *Tensor:
		return x == nil
	case *Multiview:
		return x == nil
	default:
		return false
	}
}
