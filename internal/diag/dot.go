package diag

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Flags — детализация DOT.
type Flags int

const (
	// Short — только имена узлов и тензоров.
	Short Flags = iota

	// Long — команды, зоны, диапазоны памяти и формы тензоров.
	Long
)

// ParseFlags разбирает "short" / "long".
func ParseFlags(s string) (Flags, error) {
	switch s {
	case "", "short":
		return Short, nil
	case "long":
		return Long, nil
	default:
		return Short, fmt.Errorf("unknown dot detail %q", s)
	}
}

// WriteDOT выгружает граф в формате Graphviz DOT.
//
// Подграфы выводятся кластерами, рёбра к ним — через ltail/lhead.
// Тензоры нумеруются по первому появлению в графе, пересекающиеся
// по памяти тензоры получают одну зону. Количество штрихов после имени —
// глубина вложенности подграфа.
func WriteDOT(w io.Writer, g *graph.Graph, flags Flags) error {
	if g.Freed() {
		return graph.ErrGraphFreed
	}

	d := &dotWriter{flags: flags}
	d.b.WriteString("digraph G {\ncompound=true;\n")
	if err := d.body(g, 0); err != nil {
		return err
	}
	d.b.WriteString("}\n")

	_, err := io.WriteString(w, d.b.String())
	return err
}

type dotWriter struct {
	b     strings.Builder
	flags Flags

	// next — сквозной номер узла по всем уровням вложенности.
	next int
}

// layout — номера и зоны тензоров одного графа в порядке обхода слотов.
type layout struct {
	placements []Placement
	k          int
}

func (l *layout) peek() Placement {
	return l.placements[l.k]
}

func (l *layout) take() Placement {
	p := l.placements[l.k]
	l.k++
	return p
}

// leaves раскрывает значение слота в конкретные тензоры.
func leaves(v tensor.Value) []*tensor.Tensor {
	switch x := v.(type) {
	case *tensor.Tensor:
		return []*tensor.Tensor{x}
	case *tensor.Multiview:
		return x.Leaves()
	}
	return nil
}

func newLayout(execs []*graph.Exec) *layout {
	refs := make(map[*tensor.Tensor]int)
	var spans []Span
	for _, e := range execs {
		for _, slots := range [][]tensor.Value{e.Inputs(), e.Outputs()} {
			for _, v := range slots {
				for _, t := range leaves(v) {
					ref, ok := refs[t]
					if !ok {
						ref = len(refs)
						refs[t] = ref
					}
					start, end := t.Span()
					spans = append(spans, Span{Ref: ref, Start: start, End: end})
				}
			}
		}
	}
	return &layout{placements: Zones(spans)}
}

func execsOf(g *graph.Graph) ([]*graph.Exec, error) {
	execs := make([]*graph.Exec, g.Len())
	for i := range execs {
		h, err := g.Handle(i)
		if err != nil {
			return nil, err
		}
		if execs[i], err = g.Exec(h); err != nil {
			return nil, err
		}
	}
	return execs, nil
}

func (d *dotWriter) body(g *graph.Graph, depth int) error {
	execs, err := execsOf(g)
	if err != nil {
		return err
	}
	lay := newLayout(execs)

	ids := make([]int, len(execs))
	for i, e := range execs {
		ids[i] = d.next
		if child := e.Subgraph(); child != nil {
			if err := d.cluster(e, child, lay, depth+1); err != nil {
				return err
			}
			continue
		}
		d.node(e, lay, depth)
	}

	for i, e := range execs {
		tail := e.Subgraph() != nil
		for _, j := range e.Outgoings() {
			head := execs[j].Subgraph() != nil
			switch {
			case tail && head:
				fmt.Fprintf(&d.b, "node%d -> node%d [ltail=cluster%d,lhead=cluster%d];\n", ids[i], ids[j], ids[i], ids[j])
			case tail:
				fmt.Fprintf(&d.b, "node%d -> node%d [ltail=cluster%d];\n", ids[i], ids[j], ids[i])
			case head:
				fmt.Fprintf(&d.b, "node%d -> node%d [lhead=cluster%d];\n", ids[i], ids[j], ids[j])
			default:
				fmt.Fprintf(&d.b, "node%d -> node%d;\n", ids[i], ids[j])
			}
		}
	}
	return nil
}

func (d *dotWriter) node(e *graph.Exec, lay *layout, depth int) {
	id := d.next
	d.next++

	fmt.Fprintf(&d.b, "node%d [shape=record,label=\"", id)
	if d.flags == Long {
		fmt.Fprintf(&d.b, "{node%d|Command: %s}", id, escape(e.Command().String()))
	} else {
		fmt.Fprintf(&d.b, "node%d", id)
	}
	for _, sec := range []struct {
		title string
		slots []tensor.Value
	}{
		{"Input", e.Inputs()},
		{"Output", e.Outputs()},
	} {
		if len(sec.slots) == 0 {
			continue
		}
		d.b.WriteString("|{" + sec.title)
		for _, v := range sec.slots {
			if v == nil {
				d.b.WriteString("|-")
				continue
			}
			d.b.WriteByte('|')
			d.value(v, lay, depth)
		}
		d.b.WriteByte('}')
	}
	d.b.WriteString("\"];\n")
}

func (d *dotWriter) cluster(e *graph.Exec, child *graph.Graph, lay *layout, depth int) error {
	id := d.next
	d.next++

	fmt.Fprintf(&d.b, "subgraph cluster%d {\nstyle=\"rounded\";\nnode%d [style=invisible];\n", id, id)

	title := e.Command().Name
	if title == "" {
		title = "while"
	}
	fmt.Fprintf(&d.b, "label=<<b>%s%d</b>>;\n", html.EscapeString(title), id)

	// Слоты узла подписываются на уровне родителя
	fmt.Fprintf(&d.b, "label%d [shape=record,label=\"{", id)
	inputs, outputs := e.Inputs(), e.Outputs()
	if len(inputs) > 0 {
		d.b.WriteString("{Input|{")
		d.slots(inputs, lay, depth-1)
		d.b.WriteString("}}")
	}
	if len(outputs) > 0 {
		if len(inputs) > 0 {
			d.b.WriteByte('|')
		}
		d.b.WriteString("{Output|{")
		d.slots(outputs, lay, depth-1)
		d.b.WriteString("}}")
	}
	d.b.WriteString("}\"];\n")

	if err := d.body(child, depth); err != nil {
		return err
	}
	d.b.WriteString("}\n")
	return nil
}

func (d *dotWriter) slots(values []tensor.Value, lay *layout, depth int) {
	for i, v := range values {
		if i > 0 {
			d.b.WriteByte('|')
		}
		if v == nil {
			d.b.WriteByte('-')
			continue
		}
		d.value(v, lay, depth)
	}
}

func (d *dotWriter) value(v tensor.Value, lay *layout, depth int) {
	switch x := v.(type) {
	case *tensor.Tensor:
		d.tensor(x, lay, depth)
	case *tensor.Multiview:
		d.multiview(x, lay, depth)
	}
}

func (d *dotWriter) tensor(t *tensor.Tensor, lay *layout, depth int) {
	p := lay.take()
	primes := strings.Repeat("'", depth)

	if d.flags != Long {
		fmt.Fprintf(&d.b, "tensor%d%s", p.Index, primes)
		return
	}
	start, end := t.Span()
	fmt.Fprintf(&d.b, "{tensor%d%s|zone%d%s|{0x%08x|0x%08x}|%s}",
		p.Index, primes, p.Zone, primes, start, end, t.Shape())
}

func (d *dotWriter) multiview(mv *tensor.Multiview, lay *layout, depth int) {
	primes := strings.Repeat("'", depth)

	if d.flags != Long {
		fmt.Fprintf(&d.b, "multiview%d%s", lay.peek().Index, primes)
		lay.k += len(mv.Leaves())
		return
	}

	fmt.Fprintf(&d.b, "{multiview%d%s", lay.peek().Index, primes)
	d.alternatives(mv, lay, depth)
	shape := "-"
	if ls := mv.Leaves(); len(ls) > 0 {
		shape = ls[0].Shape()
	}
	fmt.Fprintf(&d.b, "|%s}", shape)
}

// alternatives выводит альтернативы multiview; '*' — альтернатива участвует в чередовании.
func (d *dotWriter) alternatives(mv *tensor.Multiview, lay *layout, depth int) {
	primes := strings.Repeat("'", depth)

	d.b.WriteString("|{")
	views := mv.Views()
	for i, v := range views {
		fmt.Fprintf(&d.b, "{%d", i)
		if mv.Cycles(i) {
			d.b.WriteByte('*')
		}
		switch x := v.(type) {
		case *tensor.Tensor:
			p := lay.take()
			start, end := x.Span()
			fmt.Fprintf(&d.b, "|zone%d%s|{0x%08x|0x%08x}", p.Zone, primes, start, end)
		case *tensor.Multiview:
			d.alternatives(x, lay, depth)
		}
		if i == len(views)-1 {
			d.b.WriteByte('}')
		} else {
			d.b.WriteString("}|")
		}
	}
	d.b.WriteByte('}')
}

// escape экранирует символы, значимые для record-меток.
func escape(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		`{`, `\{`,
		`}`, `\}`,
		`|`, `\|`,
		`<`, `\<`,
		`>`, `\>`,
	)
	return r.Replace(s)
}
