package diag

import (
	"sort"
)

// Span — диапазон памяти одного тензора [Start, End].
type Span struct {
	// Ref — идентичность тензора: одинаковый Ref — один и тот же тензор.
	Ref   int
	Start uint64
	End   uint64
}

// Placement — номер тензора и номер зоны для одного Span.
type Placement struct {
	Index int
	Zone  int
}

// Zones объединяет пересекающиеся диапазоны памяти в зоны.
//
// Диапазоны сортируются по началу (затем по Ref) и сливаются как обычные
// интервалы: следующий диапазон попадает в текущую зону, если начинается
// не позже её конца. Номера тензоров и зон перенумеровываются в порядке
// первого появления во входном срезе. Результат выровнен по spans.
func Zones(spans []Span) []Placement {
	out := make([]Placement, len(spans))
	if len(spans) == 0 {
		return out
	}

	order := make([]int, len(spans))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		sa, sb := spans[order[a]], spans[order[b]]
		if sa.Start != sb.Start {
			return sa.Start < sb.Start
		}
		return sa.Ref < sb.Ref
	})

	zones := make([]int, len(spans))
	zone := 0
	end := spans[order[0]].End
	for n, i := range order {
		s := spans[i]
		if n > 0 && s.Start > end {
			zone++
			end = s.End
		} else if s.End > end {
			end = s.End
		}
		zones[i] = zone
	}

	refs := make(map[int]int)
	renamed := make(map[int]int)
	for i, s := range spans {
		idx, ok := refs[s.Ref]
		if !ok {
			idx = len(refs)
			refs[s.Ref] = idx
		}
		z, ok := renamed[zones[i]]
		if !ok {
			z = len(renamed)
			renamed[zones[i]] = z
		}
		out[i] = Placement{Index: idx, Zone: z}
	}
	return out
}
