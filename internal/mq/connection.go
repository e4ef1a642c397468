package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultHeartbeat = 10 * time.Second

// Credentials — учётные данные для PLAIN аутентификации в RabbitMQ.
type Credentials struct {
	Username string
	Password string
}

// ConnectionConfig — конфигурация соединения.
type ConnectionConfig struct {
	// URL — AMQP URL брокера.
	URL string

	// Auth — учётные данные (опционально; если nil — берутся из URL).
	Auth *Credentials

	// Name — имя соединения, видно в management UI.
	Name string

	// Logger
	Logger *slog.Logger
}

// Connection — владелец AMQP соединения и единственного канала.
//
// Особенности:
//   - Соединение и канал открываются явно: Connect, затем OpenChannel
//   - Доступ к каналу сериализован (WithChannel), наружу канал не отдаётся
//   - Переподключения нет: разрыв соединения фатален, сигнал через Done()
//   - Хранит состояние готовности (Readiness)
type Connection struct {
	cfg    ConnectionConfig
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel

	// chMu сериализует операции над каналом.
	// amqp.Channel не считаем безопасным для конкурентного использования.
	chMu sync.Mutex

	readiness Readiness

	closed   bool
	doneOnce sync.Once
	doneCh   chan struct{}
	err      error
}

// NewConnection создаёт Connection. Соединение не устанавливается.
func NewConnection(cfg ConnectionConfig) *Connection {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Connection{
		cfg:    cfg,
		logger: logger,
		doneCh: make(chan struct{}),
	}
}

// Connect устанавливает соединение с брокером.
func (c *Connection) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrConnectionClosed
	}

	c.logger.Info("connecting to RabbitMQ")

	conn, err := amqp.DialConfig(c.cfg.URL, c.amqpConfig())
	if err != nil {
		c.logger.Error("unable to connect to broker", "error", err)
		return fmt.Errorf("dial amqp: %w", err)
	}

	c.conn = conn
	go c.watch(conn)

	c.logger.Info("connected to RabbitMQ")
	return nil
}

// amqpConfig собирает amqp.Config с учётом учётных данных.
func (c *Connection) amqpConfig() amqp.Config {
	props := amqp.NewConnectionProperties()
	if c.cfg.Name != "" {
		props.SetClientConnectionName(c.cfg.Name)
	}

	cfg := amqp.Config{
		Heartbeat:  defaultHeartbeat,
		Locale:     "en_US",
		Properties: props,
	}

	if c.cfg.Auth != nil {
		cfg.SASL = []amqp.Authentication{
			&amqp.PlainAuth{Username: c.cfg.Auth.Username, Password: c.cfg.Auth.Password},
		}
	}

	return cfg
}

// OpenChannel открывает канал на установленном соединении.
func (c *Connection) OpenChannel(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return ErrNotConnected
	}

	c.logger.Info("opening channel")

	ch, err := c.conn.Channel()
	if err != nil {
		c.logger.Error("error opening channel", "error", err)
		return fmt.Errorf("open channel: %w", err)
	}

	c.channel = ch
	c.logger.Info("channel opened")
	return nil
}

// watch ждёт закрытия соединения и фиксирует причину.
func (c *Connection) watch(conn *amqp.Connection) {
	notifyClose := conn.NotifyClose(make(chan *amqp.Error, 1))

	amqpErr, ok := <-notifyClose
	if ok && amqpErr != nil {
		c.logger.Error("broker connection lost", "error", amqpErr)
		c.finish(fmt.Errorf("%w: %v", ErrConnectionClosed, amqpErr))
		return
	}

	c.finish(nil)
}

// finish закрывает Done() один раз.
func (c *Connection) finish(err error) {
	c.doneOnce.Do(func() {
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
		close(c.doneCh)
	})
}

// Done закрывается, когда соединение закрыто (брокером или через Close).
func (c *Connection) Done() <-chan struct{} {
	return c.doneCh
}

// Err возвращает причину закрытия соединения.
// nil, если соединение закрыто штатно или ещё открыто.
func (c *Connection) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// WithChannel выполняет функцию с текущим каналом.
// Вызовы сериализованы: в каждый момент канал использует одна функция.
func (c *Connection) WithChannel(ctx context.Context, fn func(ch *amqp.Channel) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()

	if ch == nil {
		return ErrNoChannel
	}
	if ch.IsClosed() {
		return fmt.Errorf("%w: channel is closed", ErrNoChannel)
	}

	c.chMu.Lock()
	defer c.chMu.Unlock()

	return fn(ch)
}

// MarkReady переводит бридж в состояние Ready.
func (c *Connection) MarkReady() bool {
	return c.readiness.MarkReady()
}

// IsReady проверяет готовность бриджа.
func (c *Connection) IsReady() bool {
	return c.readiness.IsReady()
}

// IsConnected проверяет, установлено ли соединение.
func (c *Connection) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return false
	}

	return !c.conn.IsClosed()
}

// Close закрывает канал и соединение.
func (c *Connection) Close() error {
	c.mu.Lock()

	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true

	ch, conn := c.channel, c.conn
	c.mu.Unlock()

	var errs []error

	if ch != nil {
		if err := ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close channel: %w", err))
		}
	}

	if conn != nil {
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, fmt.Errorf("close connection: %w", err))
		}
	}

	c.finish(nil)

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	c.logger.Info("connection closed")
	return nil
}
