package tensor

import (
	"fmt"
	"strings"
)

// Kind — схема адресации альтернатив multiview.
type Kind int

const (
	// K0N — все Repeat альтернатив чередуются циклически, начиная с нулевой.
	K0N Kind = iota

	// K1N — альтернатива 0 используется только на первой итерации,
	// дальше циклически чередуются оставшиеся Repeat альтернатив.
	K1N
)

// Prefix возвращает число фиксированных (нециклических) альтернатив.
func (k Kind) Prefix() int {
	return int(k)
}

func (k Kind) String() string {
	switch k {
	case K0N:
		return "K0N"
	case K1N:
		return "K1N"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind разбирает строковое имя схемы.
func ParseKind(s string) (Kind, error) {
	switch strings.ToUpper(s) {
	case "K0N", "":
		return K0N, nil
	case "K1N":
		return K1N, nil
	default:
		return 0, fmt.Errorf("%w: unknown kind %q", ErrInvalidMultiview, s)
	}
}

// Multiview — полиморфный тензор.
//
// Стоит вместо одного из нескольких тензоров в зависимости от итерации цикла
// или выбранной ветки. Альтернативы — тоже Value, то есть структура рекурсивна:
// выбор среди выборов, в листьях — конкретные тензоры.
//
// Выбор активной альтернативы принадлежит внешнему драйверу control flow;
// граф только читает текущий выбор при разрешении.
type Multiview struct {
	// Name — имя для диагностики.
	Name string

	// Kind — схема адресации.
	Kind Kind

	// Repeat — число циклически повторяющихся альтернатив после префикса.
	Repeat int

	views    []Value
	selected int
}

func (*Multiview) isValue() {}

// NewMultiview создаёт multiview.
//
// Число альтернатив должно быть равно kind.Prefix() + repeat, repeat >= 1,
// и ни одна альтернатива не может быть nil.
func NewMultiview(name string, kind Kind, repeat int, views ...Value) (*Multiview, error) {
	if kind != K0N && kind != K1N {
		return nil, fmt.Errorf("%w: unknown kind %d", ErrInvalidMultiview, int(kind))
	}
	if repeat < 1 {
		return nil, fmt.Errorf("%w: repeat must be positive, got %d", ErrInvalidMultiview, repeat)
	}
	if want := kind.Prefix() + repeat; len(views) != want {
		return nil, fmt.Errorf("%w: %s with repeat %d needs %d views, got %d",
			ErrInvalidMultiview, kind, repeat, want, len(views))
	}
	for i, v := range views {
		if IsNil(v) {
			return nil, fmt.Errorf("%w: view %d is nil", ErrInvalidMultiview, i)
		}
	}

	vs := make([]Value, len(views))
	copy(vs, views)
	return &Multiview{
		Name:   name,
		Kind:   kind,
		Repeat: repeat,
		views:  vs,
	}, nil
}

// Views возвращает копию списка альтернатив.
func (m *Multiview) Views() []Value {
	vs := make([]Value, len(m.views))
	copy(vs, m.views)
	return vs
}

// Count возвращает число альтернатив.
func (m *Multiview) Count() int {
	return len(m.views)
}

// Select делает активной альтернативу i.
func (m *Multiview) Select(i int) error {
	if i < 0 || i >= len(m.views) {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrSelectionOutOfRange, i, len(m.views))
	}
	m.selected = i
	return nil
}

// SelectIteration выбирает альтернативу для итерации цикла n (n >= 0).
//
//	K0N: n % Repeat
//	K1N: 0 для n == 0, иначе 1 + (n-1) % Repeat
func (m *Multiview) SelectIteration(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative iteration %d", ErrSelectionOutOfRange, n)
	}
	if m.Kind == K1N {
		if n == 0 {
			return m.Select(0)
		}
		return m.Select(1 + (n-1)%m.Repeat)
	}
	return m.Select(n % m.Repeat)
}

// Selection возвращает индекс активной альтернативы.
func (m *Multiview) Selection() int {
	return m.selected
}

// Selected возвращает активную альтернативу.
func (m *Multiview) Selected() Value {
	return m.views[m.selected]
}

// Cycles сообщает, участвует ли альтернатива i в циклическом чередовании.
func (m *Multiview) Cycles(i int) bool {
	return i >= m.Kind.Prefix()
}

// Depth возвращает глубину вложенности: 1 + максимальная глубина альтернатив,
// где конкретный тензор имеет глубину 1. У multiview над листьями глубина 2.
func (m *Multiview) Depth() int {
	depth := 0
	for _, v := range m.views {
		d := 1
		if mv, ok := v.(*Multiview); ok {
			d = mv.Depth()
		}
		depth = max(depth, d)
	}
	return depth + 1
}

// Leaf проходит по текущему выбору на каждом уровне и возвращает лист.
func (m *Multiview) Leaf() (*Tensor, error) {
	var v Value = m
	for {
		switch x := v.(type) {
		case *Tensor:
			return x, nil
		case *Multiview:
			v = x.Selected()
		default:
			return nil, ErrNoLeaf
		}
	}
}

// Leaves перечисляет все конкретные тензоры в порядке обхода альтернатив.
func (m *Multiview) Leaves() []*Tensor {
	var leaves []*Tensor
	for _, v := range m.views {
		switch x := v.(type) {
		case *Tensor:
			leaves = append(leaves, x)
		case *Multiview:
			leaves = append(leaves, x.Leaves()...)
		}
	}
	return leaves
}

func (m *Multiview) String() string {
	if m.Name != "" {
		return m.Name
	}
	parts := make([]string, len(m.views))
	for i, v := range m.views {
		parts[i] = v.String()
	}
	return fmt.Sprintf("%s(%s)", m.Kind, strings.Join(parts, ","))
}
