// Package manifest описывает граф в JSON и собирает из описания graph.Graph.
//
// Включает:
//   - manifest.go — типы описания и Parse/Load
//   - validate.go — проверка ссылок, имён и параметров multiview
//   - build.go    — сборка тензоров, multiview, графа и подграфов
//
// Пример:
//
//	{
//	  "tensors": [{"name": "x", "dtype": "f32", "dims": [4], "offset": 0}],
//	  "multiviews": [{"name": "xy", "kind": "K0N", "repeat": 2, "views": ["x", "y"]}],
//	  "graph": {
//	    "nodes": [{"name": "a", "command": {"name": "copy"}, "inputs": ["x"], "outputs": ["y"]}],
//	    "edges": [{"from": "a", "to": "b"}]
//	  }
//	}
//
// Имена узлов уникальны во всём описании, включая подграфы.
// Пустой слот задаётся строкой "-".
package manifest
