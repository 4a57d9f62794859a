package tuning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/shaiso/tensorgraph/internal/graph"
	"github.com/shaiso/tensorgraph/internal/tensor"
)

// Key вычисляет ключ кэша: xxhash от имени операции, подсказки,
// типов и форм тензоров и бюджета workspace.
//
// Backend и Algorithm в ключ не входят: их и выбирает автотюнер.
func Key(cmd graph.Command, workspace int64, hint graph.Hint, inputs, outputs []*tensor.Tensor) string {
	var b strings.Builder
	b.WriteString(cmd.Name)
	b.WriteByte(';')
	b.WriteString(strconv.FormatInt(workspace, 10))
	b.WriteString(";s=")
	writeInts(&b, hint.Stride)
	b.WriteString(";b=")
	writeInts(&b, hint.Border)
	b.WriteString(";in=")
	writeTensors(&b, inputs)
	b.WriteString(";out=")
	writeTensors(&b, outputs)

	return fmt.Sprintf("%016x", xxhash.Sum64String(b.String()))
}

func writeInts(b *strings.Builder, xs []int) {
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(x))
	}
}

func writeTensors(b *strings.Builder, ts []*tensor.Tensor) {
	for i, t := range ts {
		if i > 0 {
			b.WriteByte(',')
		}
		if t == nil {
			b.WriteByte('-')
			continue
		}
		b.WriteString(string(t.DType))
		b.WriteByte(':')
		b.WriteString(t.Shape())
	}
}
