// Package tensor описывает значения, которые exec-узлы графа хранят в слотах.
//
// Включает:
//   - tensor.go    — конкретный тензор (Tensor) и его диапазон памяти
//   - multiview.go — полиморфный тензор (Multiview), выбирающий одну из
//     альтернатив в зависимости от итерации цикла или ветки
//
// Value — закрытый sum type: слот содержит либо *Tensor (лист), либо
// *Multiview (выбор). Пакет не владеет памятью тензоров и не знает
// о численной семантике операций.
package tensor
