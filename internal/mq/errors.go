package mq

import "errors"

var (
	// ErrNoChannel — AMQP канал ещё не открыт или закрыт при разрыве.
	ErrNoChannel = errors.New("no channel available")

	// ErrClosed — соединение закрыто через Close.
	ErrClosed = errors.New("connection closed")
)
