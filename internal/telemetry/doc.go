// Package telemetry обеспечивает наблюдаемость обхода графов.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики диспетчеризации и кэша автотюнинга
//
// CLI и tuner используют единый формат логирования;
// tuner экспортирует метрики на /metrics endpoint.
package telemetry
