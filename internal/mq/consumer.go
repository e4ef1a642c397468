package mq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/semaphore"
)

// AckMode — режим подтверждения сообщений.
type AckMode string

const (
	// AckAuto — брокер подтверждает сообщение в момент доставки (at-most-once).
	// При падении процесса сообщения в обработке теряются.
	AckAuto AckMode = "auto"

	// AckManual — сообщение подтверждается после маршрутизации результата.
	AckManual AckMode = "manual"
)

// Handler — функция обработки сообщения.
// Ошибка логируется; в режиме AckManual сообщение возвращается в очередь.
type Handler func(ctx context.Context, env *Envelope) error

// ConsumerConfig — конфигурация consumer.
type ConsumerConfig struct {
	// Queue — имя очереди.
	Queue string

	// Handler — обработчик сообщений.
	Handler Handler

	// AckMode — режим подтверждения (default: AckAuto).
	AckMode AckMode

	// MaxInFlight — ограничение одновременно обрабатываемых сообщений.
	// 0 — без ограничения.
	MaxInFlight int

	// Logger
	Logger *slog.Logger
}

// Consumer потребляет сообщения из очереди и обрабатывает каждое
// в отдельной горутине.
type Consumer struct {
	conn    *Connection
	logger  *slog.Logger
	queue   string
	handler Handler
	ackMode AckMode
	sem     *semaphore.Weighted
	limit   int
	tag     string

	deliveries <-chan amqp.Delivery
	wg         sync.WaitGroup
}

// NewConsumer создаёт новый Consumer.
func NewConsumer(conn *Connection, cfg ConsumerConfig) *Consumer {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	ackMode := cfg.AckMode
	if ackMode == "" {
		ackMode = AckAuto
	}

	var sem *semaphore.Weighted
	if cfg.MaxInFlight > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxInFlight))
	}

	return &Consumer{
		conn:    conn,
		logger:  logger,
		queue:   cfg.Queue,
		handler: cfg.Handler,
		ackMode: ackMode,
		sem:     sem,
		limit:   cfg.MaxInFlight,
		tag:     "mqbridge-" + uuid.NewString(),
	}
}

// Subscribe объявляет очередь и подписывается на неё.
// Сообщения не обрабатываются до вызова Run.
func (c *Consumer) Subscribe(ctx context.Context) error {
	return c.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		if err := declareQueue(ch, c.queue); err != nil {
			return err
		}

		// prefetch имеет смысл только при ручном ack
		if c.ackMode == AckManual && c.sem != nil {
			if err := ch.Qos(c.limit, 0, false); err != nil {
				return fmt.Errorf("set qos: %w", err)
			}
		}

		deliveries, err := ch.Consume(
			c.queue,              // queue
			c.tag,                // consumer tag
			c.ackMode == AckAuto, // auto-ack
			false,                // exclusive
			false,                // no-local
			false,                // no-wait
			nil,                  // args
		)
		if err != nil {
			return fmt.Errorf("consume %s: %w", c.queue, err)
		}

		c.deliveries = deliveries
		c.logger.Info("subscribed to queue", "queue", c.queue, "ack_mode", c.ackMode)
		return nil
	})
}

// Run обрабатывает доставленные сообщения до отмены ctx
// или закрытия канала доставки. Перед выходом ждёт обработку
// сообщений, которые уже в работе.
func (c *Consumer) Run(ctx context.Context) error {
	if c.deliveries == nil {
		return fmt.Errorf("consumer for %s is not subscribed", c.queue)
	}

	defer c.wg.Wait()

	// Сообщения в работе дорабатываются после отмены ctx
	handlerCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			c.cancel()
			return ctx.Err()

		case raw, ok := <-c.deliveries:
			if !ok {
				return fmt.Errorf("%w: deliveries channel for %s closed", ErrConnectionClosed, c.queue)
			}

			if c.sem != nil {
				if err := c.sem.Acquire(ctx, 1); err != nil {
					c.settle(raw, err)
					c.cancel()
					return ctx.Err()
				}
			}

			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				if c.sem != nil {
					defer c.sem.Release(1)
				}
				c.handleDelivery(handlerCtx, raw)
			}()
		}
	}
}

// handleDelivery обрабатывает одно сообщение.
func (c *Consumer) handleDelivery(ctx context.Context, raw amqp.Delivery) {
	env, err := DecodeEnvelope(raw.Body)
	if err != nil {
		c.logger.Error("failed to decode message",
			"queue", c.queue,
			"error", err,
			"body", string(raw.Body),
		)
		// Некорректное сообщение не возвращаем в очередь
		if c.ackMode == AckManual {
			_ = raw.Nack(false, false)
		}
		return
	}

	c.logger.Debug("received message",
		"queue", c.queue,
		"message_id", env.ID,
		"action", env.Action,
	)

	err = c.handler(ctx, env)
	if err != nil {
		c.logger.Error("message handling failed",
			"queue", c.queue,
			"message_id", env.ID,
			"action", env.Action,
			"error", err,
		)
	}

	c.settle(raw, err)
}

// settle подтверждает или возвращает сообщение в режиме AckManual.
func (c *Consumer) settle(raw amqp.Delivery, handlerErr error) {
	if c.ackMode != AckManual {
		return
	}

	var err error
	if handlerErr != nil {
		err = raw.Nack(false, true)
	} else {
		err = raw.Ack(false)
	}
	if err != nil {
		c.logger.Warn("failed to settle delivery", "queue", c.queue, "error", err)
	}
}

// cancel отменяет подписку. Ошибки не критичны: канал мог быть уже закрыт.
func (c *Consumer) cancel() {
	err := c.conn.WithChannel(context.Background(), func(ch *amqp.Channel) error {
		return ch.Cancel(c.tag, false)
	})
	if err != nil {
		c.logger.Debug("cancel consumer", "queue", c.queue, "error", err)
	}
}
