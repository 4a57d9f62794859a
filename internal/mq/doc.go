// Package mq публикует события обхода графов в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим reconnect
//   - topology.go   — обменник tensorgraph.events, очереди и привязки
//   - publisher.go  — конверт Message и публикация JSON
//   - sink.go       — EventSink, graph.Observer поверх Publisher
//   - consumer.go   — чтение очередей (команда events в CLI)
//
// Ключи маршрутизации:
//   - dispatch.<phase>.ok / dispatch.<phase>.failed — диспетчеризация узла
//   - tune.completed — итог прохода автотюнинга
package mq
