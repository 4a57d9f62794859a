// Package backend — эталонная реализация исполнителя и автотюнера.
//
// Включает:
//   - kernel.go   — Kernel: операция, её арность, проверка форм и варианты реализации
//   - registry.go — Registry: реестр kernels по имени команды, graph.Executor и graph.Autotuner
//   - builtin.go  — встроенные kernels: noop, copy, add, matmul
//
// Численных эффектов backend не производит: Execute проверяет арность и
// формы тензоров и записывает диспетчеризацию в журнал. Его задача —
// дать графу настоящего собеседника для запусков из CLI и тестов.
package backend
