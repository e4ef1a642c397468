package bridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shaiso/mqbridge/internal/config"
	"github.com/shaiso/mqbridge/internal/invoker"
	"github.com/shaiso/mqbridge/internal/localsvc"
	"github.com/shaiso/mqbridge/internal/mq"
	"github.com/shaiso/mqbridge/internal/telemetry"
)

// Options — зависимости Bridge.
type Options struct {
	// Logger
	Logger *slog.Logger

	// Metrics (опционально)
	Metrics *telemetry.Metrics

	// Stdout, Stderr локального сервиса. Default: stdout/stderr процесса.
	Stdout io.Writer
	Stderr io.Writer
}

// localStopTimeout — сколько Close ждёт завершения локального сервиса.
const localStopTimeout = 10 * time.Second

// runner — цикл обработки сообщений (mq.Consumer).
type runner interface {
	Run(ctx context.Context) error
}

// lifeline — ресурс, завершение которого останавливает бридж:
// соединение с брокером или локальный сервис.
type lifeline interface {
	Done() <-chan struct{}
	Err() error
}

// Bridge — очередь process → HTTP-сервис → очереди success/error/dead.
type Bridge struct {
	cfg *config.Config

	conn      *mq.Connection
	consumer  runner
	subscribe func(ctx context.Context) error
	local     *localsvc.Process

	opts    Options
	logger  *slog.Logger
	metrics *telemetry.Metrics
}

// New собирает Bridge из конфигурации. Соединение не устанавливается.
func New(cfg *config.Config, opts Options) (*Bridge, error) {
	registry, err := cfg.Registry()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrInvalidConfig, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn := mq.NewConnection(mq.ConnectionConfig{
		URL:    cfg.BrokerURL,
		Auth:   cfg.Credentials(),
		Name:   "mqbridge:" + cfg.Queues.Process,
		Logger: logger,
	})

	dispatcher := NewDispatcher(DispatcherConfig{
		Registry: registry,
		Invoker: invoker.New(invoker.Config{
			Host:    cfg.ServiceHost,
			Port:    cfg.ServicePort,
			Stage:   cfg.ServiceStage,
			Timeout: cfg.ServiceTimeout,
		}),
		Publisher: mq.NewPublisher(conn, logger),
		Readiness: conn,
		Queues:    cfg.MQQueues(),
		Metrics:   opts.Metrics,
		Logger:    logger,
	})

	consumer := mq.NewConsumer(conn, mq.ConsumerConfig{
		Queue:       cfg.Queues.Process,
		Handler:     dispatcher.Dispatch,
		AckMode:     mq.AckMode(cfg.Consumer.AckMode),
		MaxInFlight: cfg.Consumer.MaxInFlight,
		Logger:      logger,
	})

	return &Bridge{
		cfg:       cfg,
		conn:      conn,
		consumer:  consumer,
		subscribe: consumer.Subscribe,
		opts:      opts,
		logger:    logger,
		metrics:   opts.Metrics,
	}, nil
}

// Initialize подключается к брокеру и подписывается на очередь process.
//
// Шаги выполняются строго по порядку; ошибка на любом шаге прерывает
// инициализацию. Состояние Ready выставляется после подписки и до
// начала обработки сообщений (Run), поэтому сообщение не может прийти
// в диспетчер раньше готовности.
func (b *Bridge) Initialize(ctx context.Context) error {
	if err := b.conn.Connect(ctx); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	if err := b.conn.OpenChannel(ctx); err != nil {
		return fmt.Errorf("open channel: %w", err)
	}

	if err := mq.DeclareQueues(ctx, b.conn, b.cfg.MQQueues()); err != nil {
		return fmt.Errorf("declare queues: %w", err)
	}

	if err := b.subscribe(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	b.conn.MarkReady()
	b.metrics.SetReady()
	b.logger.Info("bridge ready",
		"queue", b.cfg.Queues.Process,
		"actions", len(b.cfg.Actions),
	)

	if b.cfg.StartCommand != "" {
		local, err := localsvc.Start(ctx, localsvc.Config{
			Command: b.cfg.StartCommand,
			Stdout:  b.opts.Stdout,
			Stderr:  b.opts.Stderr,
			Logger:  b.logger,
		})
		if err != nil {
			return fmt.Errorf("start local service: %w", err)
		}
		b.local = local
	}

	return nil
}

// Run обрабатывает сообщения до отмены ctx, разрыва соединения
// или завершения локального сервиса.
//
// nil — штатное завершение (отмена ctx или локальный сервис вышел с кодом 0).
func (b *Bridge) Run(ctx context.Context) error {
	if !b.conn.IsReady() {
		return ErrNotReady
	}

	var local lifeline
	if b.local != nil {
		local = b.local
	}

	return b.run(ctx, b.conn, local)
}

// run — цикл Run. local может быть nil.
func (b *Bridge) run(ctx context.Context, broker, local lifeline) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumerErr := make(chan error, 1)
	go func() {
		consumerErr <- b.consumer.Run(runCtx)
	}()

	var localDone <-chan struct{}
	if local != nil {
		localDone = local.Done()
	}

	// stop останавливает consumer и ждёт сообщения в обработке.
	stop := func() {
		cancel()
		<-consumerErr
	}

	select {
	case <-ctx.Done():
		stop()
		return nil

	case err := <-consumerErr:
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err

	case <-broker.Done():
		stop()
		if err := broker.Err(); err != nil {
			return err
		}
		return mq.ErrConnectionClosed

	case <-localDone:
		stop()
		// при остановке по сигналу процесс завершается вместе с ctx
		if ctx.Err() != nil {
			return nil
		}
		if err := local.Err(); err != nil {
			return fmt.Errorf("%w: %w", ErrLocalServiceExited, err)
		}
		b.logger.Info("local service finished, stopping bridge")
		return nil
	}
}

// IsReady проверяет, подписан ли бридж на очередь process.
func (b *Bridge) IsReady() bool {
	return b.conn.IsReady()
}

// Healthy — бридж готов и соединение с брокером живо.
func (b *Bridge) Healthy() bool {
	return b.conn.IsReady() && b.conn.IsConnected()
}

// Close закрывает соединение с брокером и останавливает локальный сервис.
func (b *Bridge) Close() error {
	var errs []error

	if b.local != nil {
		if err := b.local.Stop(localStopTimeout); err != nil {
			errs = append(errs, fmt.Errorf("stop local service: %w", err))
		}
	}

	if err := b.conn.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
