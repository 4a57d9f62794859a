package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shaiso/tensorgraph/internal/graph"
)

// EmptySlot — обозначение пустого слота.
const EmptySlot = "-"

// Manifest — описание тензоров и графа.
type Manifest struct {
	Tensors    []TensorSpec    `json:"tensors"`
	Multiviews []MultiviewSpec `json:"multiviews,omitempty"`
	Graph      GraphSpec       `json:"graph"`
}

// TensorSpec — конкретный тензор.
type TensorSpec struct {
	Name   string `json:"name"`
	DType  string `json:"dtype"`
	Dims   []int  `json:"dims"`
	Offset uint64 `json:"offset"`
}

// MultiviewSpec — multiview над тензорами или другими multiview,
// объявленными выше по списку.
type MultiviewSpec struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Repeat int      `json:"repeat"`
	Views  []string `json:"views"`
}

// GraphSpec — граф или подграф.
type GraphSpec struct {
	Nodes        []NodeSpec `json:"nodes"`
	Edges        []EdgeSpec `json:"edges,omitempty"`
	Sources      []string   `json:"sources,omitempty"`
	Destinations []string   `json:"destinations,omitempty"`
}

// NodeSpec — exec-узел.
type NodeSpec struct {
	Name       string        `json:"name"`
	Command    graph.Command `json:"command"`
	Hint       graph.Hint    `json:"hint,omitempty"`
	Inputs     []string      `json:"inputs,omitempty"`
	Outputs    []string      `json:"outputs,omitempty"`
	Broadcasts []string      `json:"broadcasts,omitempty"`

	// Subgraph — тело цикла или условия.
	Subgraph *GraphSpec `json:"subgraph,omitempty"`

	// Control — конструкция для подграфа; без неё подграф выполняется один раз.
	Control *ControlSpec `json:"control,omitempty"`
}

// EdgeSpec — ребро From → To.
type EdgeSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// ControlSpec — конструкция control flow.
type ControlSpec struct {
	// Type — loop или if.
	Type string `json:"type"`

	// Count — число итераций цикла.
	Count int `json:"count,omitempty"`

	// Take — выполнять ли ветку условия.
	Take bool `json:"take,omitempty"`
}

// Parse разбирает JSON и валидирует описание. Неизвестные поля — ошибка.
func Parse(data []byte) (*Manifest, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Load читает и разбирает файл описания.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}
