package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher публикует envelope в очереди через default exchange.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт новый Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}

	return &Publisher{
		conn:   conn,
		logger: logger,
	}
}

// Publish объявляет очередь (durable) и публикует в неё envelope.
//
// Ошибка не ретраится — решение принимает вызывающий код.
func (p *Publisher) Publish(ctx context.Context, queue string, env *Envelope) error {
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("%w: marshal envelope: %v", ErrPublish, err)
	}

	err = p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareQueue(ch, queue); err != nil {
			return err
		}

		return ch.PublishWithContext(
			ctx,
			"",    // default exchange
			queue, // routing key = имя очереди
			false,
			false,
			amqp.Publishing{
				ContentType:   "application/json",
				DeliveryMode:  amqp.Persistent, // сообщение переживёт рестарт RabbitMQ
				MessageId:     uuid.New().String(),
				CorrelationId: env.ID,
				Type:          env.Action,
				Timestamp:     time.Now(),
				Body:          body,
			},
		)
	})
	if err != nil {
		return fmt.Errorf("%w: queue %s: %w", ErrPublish, queue, err)
	}

	p.logger.Debug("message sent to queue",
		"queue", queue,
		"message_id", env.ID,
		"action", env.Action,
	)

	return nil
}
