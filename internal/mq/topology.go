package mq

import (
	"context"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Queues — имена очередей бриджа.
type Queues struct {
	// Process — входящая очередь с задачами.
	Process string

	// Success — результаты успешных вызовов.
	Success string

	// Error — ошибки вызовов без retry-контекста.
	Error string

	// Dead — dead-letter очередь (опционально).
	Dead string
}

// HasDead проверяет, настроена ли dead-letter очередь.
func (q Queues) HasDead() bool {
	return q.Dead != ""
}

// All возвращает все настроенные очереди.
func (q Queues) All() []string {
	names := []string{q.Process, q.Success, q.Error}
	if q.HasDead() {
		names = append(names, q.Dead)
	}
	return names
}

// declareQueue объявляет durable очередь. Повторное объявление идемпотентно.
func declareQueue(ch *amqp.Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// DeclareQueues объявляет все очереди бриджа.
func DeclareQueues(ctx context.Context, conn *Connection, queues Queues) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		for _, name := range queues.All() {
			if err := declareQueue(ch, name); err != nil {
				return err
			}
		}
		return nil
	})
}

// TopologyInfo возвращает описание топологии для вывода в CLI.
func TopologyInfo(queues Queues, ackMode AckMode) string {
	if ackMode == "" {
		ackMode = AckAuto
	}

	dead := queues.Dead
	if dead == "" {
		dead = "(not configured)"
	}

	var b strings.Builder
	b.WriteString("\n  mqbridge RabbitMQ Topology (default exchange, durable queues):\n\n")
	fmt.Fprintf(&b, "    %s\n", queues.Process)
	fmt.Fprintf(&b, "    │   Consumer: mqbridge (%s-ack)\n", ackMode)
	b.WriteString("    │\n")
	fmt.Fprintf(&b, "    ├── success → %s\n", queues.Success)
	fmt.Fprintf(&b, "    ├── error   → %s\n", queues.Error)
	fmt.Fprintf(&b, "    └── dead    → %s\n", dead)
	return b.String()
}
