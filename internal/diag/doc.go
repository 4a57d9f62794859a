// Package diag — диагностический экспорт графа.
//
// Включает:
//   - zone.go — разбиение тензоров на зоны пересекающейся памяти
//   - dot.go  — выгрузка графа в формате Graphviz DOT
//
// Пакет только читает граф и на выполнение не влияет.
package diag
