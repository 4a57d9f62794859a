// Package graph — ядро исполняемого графа тензорных вычислений.
//
// Включает:
//   - exec.go  — exec-узел (операция, слоты тензоров, исходящие рёбра)
//   - nest.go  — tensor nest: кэш разрешения multiview-тензоров в слотах узла
//   - graph.go — граф: узлы, рёбра, sources/destinations, подграфы и
//     реестр nested execs, распространяемый по всем предкам
//   - visit.go — обход в порядке зависимостей (алгоритм Кана)
//   - run.go   — драйверы Run и Autotune поверх обхода
//
// Граф однопоточный: одновременно допускается ровно один обход,
// потому что разрешение multiview меняет состояние узлов. Сериализация
// конкурентных запусков — ответственность вызывающего кода.
//
// Циклы (loop) и условия (if) выражаются не рёбрами, а вложенными
// подграфами: узел ссылается на дочерний граф, а внешний ControlFlow
// решает, сколько раз его обойти.
package graph
