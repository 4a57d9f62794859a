package controlflow

// Construct решает, выполнять ли очередную итерацию подграфа.
type Construct interface {
	// Continue вызывается перед итерацией i (с нуля).
	Continue(i int) bool

	// Kind — имя конструкции для логов.
	Kind() string
}

// Loop — цикл while: итерация выполняется, пока Cond(i) истинно.
type Loop struct {
	Cond func(i int) bool
}

// Continue реализует Construct.
func (l Loop) Continue(i int) bool {
	return l.Cond != nil && l.Cond(i)
}

// Kind реализует Construct.
func (Loop) Kind() string { return "loop" }

// Counted возвращает цикл ровно из n итераций.
func Counted(n int) Construct {
	return counted(n)
}

type counted int

func (c counted) Continue(i int) bool { return i < int(c) }

func (counted) Kind() string { return "loop" }

// If — условие: подграф выполняется не более одного раза, если Cond() истинно.
type If struct {
	Cond func() bool
}

// Continue реализует Construct.
func (c If) Continue(i int) bool {
	return i == 0 && c.Cond != nil && c.Cond()
}

// Kind реализует Construct.
func (If) Kind() string { return "if" }

// Once — один проход; используется для узлов без зарегистрированной конструкции.
type Once struct{}

// Continue реализует Construct.
func (Once) Continue(i int) bool { return i == 0 }

// Kind реализует Construct.
func (Once) Kind() string { return "once" }
