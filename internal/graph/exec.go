package graph

import (
	"fmt"

	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Command — дескриптор операции.
//
// Для графа он непрозрачен: интерпретирует его Executor, а Autotune
// может заменить его на другой вариант реализации.
type Command struct {
	// Name — имя операции (matmul, add, ...).
	Name string `json:"name"`

	// Backend — реализация (cpu, gpu, ...); пусто — выбор за исполнителем.
	Backend string `json:"backend,omitempty"`

	// Algorithm — номер варианта реализации внутри backend.
	Algorithm int `json:"algorithm"`
}

func (c Command) String() string {
	if c.Backend == "" {
		return c.Name
	}
	return fmt.Sprintf("%s/%s#%d", c.Name, c.Backend, c.Algorithm)
}

// Hint — подсказка исполнителю (шаги и поля свёрток и т.п.).
type Hint struct {
	Stride []int `json:"stride,omitempty"`
	Border []int `json:"border,omitempty"`
}

func (h Hint) clone() Hint {
	return Hint{
		Stride: cloneInts(h.Stride),
		Border: cloneInts(h.Border),
	}
}

// Handle — непрозрачная ссылка на узел: граф + индекс.
//
// Индекс стабилен на всё время жизни графа.
type Handle struct {
	graph *Graph
	index int
}

// Graph возвращает граф, создавший узел.
func (h Handle) Graph() *Graph {
	return h.graph
}

// Index возвращает индекс узла в графе.
func (h Handle) Index() int {
	return h.index
}

// IsZero проверяет, что handle не инициализирован.
func (h Handle) IsZero() bool {
	return h.graph == nil
}

func (h Handle) String() string {
	if h.graph == nil {
		return "exec(nil)"
	}
	return fmt.Sprintf("exec #%d@%s", h.index, shortID(h.graph))
}

// Exec — exec-узел графа.
//
// Слоты inputs/outputs/broadcasts — три независимые упорядоченные
// последовательности. Тензоры принадлежат внешнему коду, рёбра и
// состояние tensor nests — графу.
type Exec struct {
	cmd  Command
	hint Hint

	inputs     []tensor.Value
	outputs    []tensor.Value
	broadcasts []tensor.Value

	// outgoings — индексы узлов-последователей в порядке добавления.
	outgoings []int

	// subgraph — тело цикла/условия, если узел вызывает дочерний граф.
	subgraph *Graph

	// nests — nil, если ни один слот не содержит multiview.
	nests *nestSet
}

// Command возвращает дескриптор операции.
func (e *Exec) Command() Command {
	return e.cmd
}

// Hint возвращает подсказку исполнителю.
func (e *Exec) Hint() Hint {
	return e.hint.clone()
}

// Inputs возвращает текущие значения входных слотов.
// После Resolve в них лежат конкретные тензоры, после Rewind — исходные значения.
func (e *Exec) Inputs() []tensor.Value {
	return cloneValues(e.inputs)
}

// Outputs возвращает текущие значения выходных слотов.
func (e *Exec) Outputs() []tensor.Value {
	return cloneValues(e.outputs)
}

// Broadcasts возвращает текущие значения broadcast-слотов.
func (e *Exec) Broadcasts() []tensor.Value {
	return cloneValues(e.broadcasts)
}

// Outgoings возвращает индексы последователей.
func (e *Exec) Outgoings() []int {
	return cloneInts(e.outgoings)
}

// Subgraph возвращает дочерний граф или nil.
func (e *Exec) Subgraph() *Graph {
	return e.subgraph
}

// HasNests сообщает, держит ли узел tensor nests.
func (e *Exec) HasNests() bool {
	return e.nests != nil
}

// release отпускает все массивы узла и возвращает число освобождённых nests.
func (e *Exec) release() int {
	n := e.nests.count()
	e.inputs = nil
	e.outputs = nil
	e.broadcasts = nil
	e.outgoings = nil
	e.nests = nil
	e.subgraph = nil
	return n
}

// concrete переводит разрешённые слоты в список конкретных тензоров.
// Пустой слот остаётся nil.
func concrete(values []tensor.Value) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
		case *tensor.Tensor:
			out[i] = x
		default:
			return nil, fmt.Errorf("slot %d: unresolved %s", i, v)
		}
	}
	return out, nil
}

func cloneValues(vs []tensor.Value) []tensor.Value {
	if vs == nil {
		return nil
	}
	out := make([]tensor.Value, len(vs))
	copy(out, vs)
	return out
}

func cloneInts(xs []int) []int {
	if xs == nil {
		return nil
	}
	out := make([]int, len(xs))
	copy(out, xs)
	return out
}
