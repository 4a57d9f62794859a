// Package controlflow реализует graph.ControlFlow: циклы и условия
// поверх вложенных подграфов.
//
// Driver хранит конструкцию для каждого узла с подграфом и перед каждым
// проходом переключает выбор multiview на номер итерации: у переносимых
// переменных узла-родителя и у слотов узлов самого подграфа. После прохода
// слоты подграфа откатываются к исходным multiview.
package controlflow
