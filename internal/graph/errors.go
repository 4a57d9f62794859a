package graph

import (
	"errors"
	"fmt"
)

// Ошибки построения и изменения графа.
var (
	// ErrInvalidHandle — индекс узла вне диапазона графа.
	ErrInvalidHandle = errors.New("invalid exec handle")

	// ErrForeignHandle — handle создан другим графом.
	ErrForeignHandle = errors.New("exec handle belongs to another graph")

	// ErrGraphFreed — граф уже освобождён.
	ErrGraphFreed = errors.New("graph is freed")

	// ErrAlreadyConnected — ребро уже существует (повторный Connect ничего не меняет).
	ErrAlreadyConnected = errors.New("execs already connected")

	// ErrNotConnected — ребра нет.
	ErrNotConnected = errors.New("execs not connected")

	// ErrSubgraphAttached — подграф уже принадлежит другому узлу.
	ErrSubgraphAttached = errors.New("subgraph already attached")

	// ErrSubgraphCycle — подграф является самим графом или его предком.
	ErrSubgraphCycle = errors.New("subgraph would contain its ancestor")

	// ErrNoSubgraph — AddSubgraphExec вызван без дочернего графа.
	ErrNoSubgraph = errors.New("subgraph is nil")

	// ErrInvalidValue — слот содержит nil-указатель на тензор или multiview.
	// Пустой слот задаётся значением nil.
	ErrInvalidValue = errors.New("slot holds a nil tensor or multiview")
)

// Ошибки обхода.
var (
	// ErrCycle — в области обхода есть цикл, корректного порядка нет.
	ErrCycle = errors.New("cycle in traversal scope")

	// ErrUnreachable — destination недостижим из sources.
	ErrUnreachable = errors.New("destination unreachable from sources")
)

// Ошибки выполнения.
var (
	// ErrDispatch — узел завершился ошибкой при Run или Autotune.
	ErrDispatch = errors.New("exec dispatch failed")

	// ErrNoExecutor — Runner создан без Executor.
	ErrNoExecutor = errors.New("no executor configured")

	// ErrNoAutotuner — Runner создан без Autotuner.
	ErrNoAutotuner = errors.New("no autotuner configured")
)

// HandleError — ошибка операции над конкретным узлом.
type HandleError struct {
	Op     string // операция (connect, set_io, ...)
	Handle Handle // handle, вызвавший ошибку
	Err    error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *HandleError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Handle, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *HandleError) Unwrap() error {
	return e.Err
}

// ScopeError — ошибка построения порядка обхода.
type ScopeError struct {
	Index int   // узел, на котором обнаружена проблема
	Err   error // ErrCycle или ErrUnreachable
}

// Error реализует интерфейс error.
func (e *ScopeError) Error() string {
	return fmt.Sprintf("exec #%d: %v", e.Index, e.Err)
}

// Unwrap возвращает базовую ошибку.
func (e *ScopeError) Unwrap() error {
	return e.Err
}

// DispatchError — ошибка выполнения узла.
//
// errors.Is(err, ErrDispatch) истинно для любой DispatchError,
// причину можно достать через errors.Unwrap / errors.As.
type DispatchError struct {
	Phase   Phase
	Index   int
	Command string
	Err     error
}

// Error реализует интерфейс error.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("%s exec #%d (%s): %v", e.Phase, e.Index, e.Command, e.Err)
}

// Unwrap возвращает причину.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Is сопоставляет ошибку с ErrDispatch.
func (e *DispatchError) Is(target error) bool {
	return target == ErrDispatch
}
