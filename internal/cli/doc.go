// Package cli реализует команды mqbridge.
//
// Команды:
//   - run       — запуск бриджа (очередь process → HTTP-сервис → очереди результатов)
//   - validate  — проверка конфигурации и вывод таблицы actions
//   - topology  — вывод очередей бриджа
//
// Каждая команда создаётся фабричной функцией (NewRunCmd и т.д.),
// принимающей configFn (и outputFn для validate/topology) — замыкания,
// которые читают PersistentFlags после парсинга. run пишет только логи
// и поднимает /healthz + /metrics на metricsPort.
//
// Данные выводятся в stdout, сообщения — в stderr. С флагом --json
// вывод validate и topology можно передавать в jq.
package cli
