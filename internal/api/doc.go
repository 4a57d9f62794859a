// Package api содержит служебный HTTP API tensorgraph-tuner.
//
// Структура:
//   - handler.go    — Handler с DI (tuner, store, logger) и обработчики
//   - routes.go     — регистрация маршрутов
//   - middleware.go — middleware (logging, recovery)
//   - response.go   — унифицированные JSON-ответы и обработка ошибок
package api
