// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — соединение и единственный канал, состояние готовности
//   - readiness.go  — машина состояний NotReady → Ready
//   - topology.go   — имена и объявление durable очередей
//   - publisher.go  — публикация envelope в очереди (persistent)
//   - consumer.go   — потребление очереди process, горутина на сообщение
//   - envelope.go   — формат сообщения во всех очередях
//
// Все очереди публикуются через default exchange: routing key совпадает
// с именем очереди.
//
// Переподключения нет. Разрыв соединения закрывает Connection.Done(),
// процесс завершается и перезапускается внешним супервизором.
//
// Подтверждение по умолчанию — в момент доставки (AckAuto): сообщение,
// которое обрабатывалось в момент падения процесса, теряется
// (at-most-once). AckManual подтверждает сообщение после маршрутизации.
package mq
