// Package telemetry обеспечивает наблюдаемость бриджа.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Метрики экспортируются на /metrics endpoint.
package telemetry
