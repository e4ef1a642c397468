package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/mqbridge/internal/action"
	"github.com/shaiso/mqbridge/internal/mq"
	"github.com/shaiso/mqbridge/internal/retry"
	"github.com/shaiso/mqbridge/internal/telemetry"
)

// Publisher публикует envelope в очередь.
type Publisher interface {
	Publish(ctx context.Context, queue string, env *mq.Envelope) error
}

// Invoker вызывает сервис для action.
type Invoker interface {
	Invoke(ctx context.Context, a action.Action, env *mq.Envelope) (json.RawMessage, error)
}

// Readiness сообщает, подписан ли бридж на очередь process.
type Readiness interface {
	IsReady() bool
}

// DispatcherConfig — конфигурация Dispatcher.
type DispatcherConfig struct {
	Registry  *action.Registry
	Invoker   Invoker
	Publisher Publisher
	Readiness Readiness
	Queues    mq.Queues

	// Metrics (опционально)
	Metrics *telemetry.Metrics

	// Logger
	Logger *slog.Logger
}

// Dispatcher обрабатывает сообщения из очереди process.
type Dispatcher struct {
	registry  *action.Registry
	invoker   Invoker
	publisher Publisher
	readiness Readiness
	queues    mq.Queues
	retrier   *retry.Retrier
	metrics   *telemetry.Metrics
	logger    *slog.Logger
}

// NewDispatcher создаёт Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		registry:  cfg.Registry,
		invoker:   cfg.Invoker,
		publisher: cfg.Publisher,
		readiness: cfg.Readiness,
		queues:    cfg.Queues,
		retrier:   retry.New(logger),
		metrics:   cfg.Metrics,
		logger:    logger,
	}
}

// Dispatch обрабатывает одно сообщение.
//
// Ошибка возвращается только если результат не удалось маршрутизировать:
// бридж не готов или публикация не удалась. Ошибки вызова сервиса
// уходят в очереди error/dead и наружу не возвращаются.
func (d *Dispatcher) Dispatch(ctx context.Context, env *mq.Envelope) error {
	d.metrics.MessageReceived()
	defer d.metrics.TrackInFlight()()

	logger := telemetry.WithMessage(d.logger, env.ID, env.Action)

	if !d.readiness.IsReady() {
		d.metrics.MessageRouted(telemetry.OutcomeFailed)
		return fmt.Errorf("%w: message %s", ErrNotReady, env.ID)
	}

	a, ok := d.registry.Resolve(env.Action)
	if !ok {
		logger.Warn("message dropped", "error", ErrActionNotFound)
		d.metrics.MessageRouted(telemetry.OutcomeDropped)
		return nil
	}

	data, err := retry.Do(ctx, d.retrier, env.MaxAttempts(), d.invokeOnce(a, env), d.deadLetter(env))
	if err != nil {
		return d.routeFailure(ctx, logger, env, err)
	}

	return d.routeSuccess(ctx, logger, env, data)
}

// invokeOnce — одна попытка вызова сервиса.
func (d *Dispatcher) invokeOnce(a action.Action, env *mq.Envelope) retry.Operation[json.RawMessage] {
	return func(ctx context.Context) (json.RawMessage, error) {
		start := time.Now()
		data, err := d.invoker.Invoke(ctx, a, env)
		d.metrics.ObserveCall(a.Key, time.Since(start), err)
		return data, err
	}
}

// deadLetter возвращает обработчик исчерпания попыток.
// nil, если dead очередь не настроена.
func (d *Dispatcher) deadLetter(env *mq.Envelope) retry.ExhaustedFunc {
	if !d.queues.HasDead() {
		return nil
	}

	return func(ctx context.Context, last error) error {
		return d.publisher.Publish(ctx, d.queues.Dead, env.Failure(last.Error()))
	}
}

// routeSuccess публикует результат в success, если он нужен продюсеру.
func (d *Dispatcher) routeSuccess(ctx context.Context, logger *slog.Logger, env *mq.Envelope, data json.RawMessage) error {
	if !env.WantsResponse() {
		logger.Debug("call succeeded, response not requested")
		d.metrics.MessageRouted(telemetry.OutcomeSkipped)
		return nil
	}

	if err := d.publisher.Publish(ctx, d.queues.Success, env.Reply(data)); err != nil {
		d.metrics.MessageRouted(telemetry.OutcomeFailed)
		return fmt.Errorf("route success: %w", err)
	}

	logger.Info("message sent to queue", "queue", d.queues.Success)
	d.metrics.MessageRouted(telemetry.OutcomeSuccess)
	return nil
}

// routeFailure решает, куда отправить ошибку.
//
// Исчерпание попыток при настроенной dead очереди уже опубликовано
// в dead и в error не дублируется.
func (d *Dispatcher) routeFailure(ctx context.Context, logger *slog.Logger, env *mq.Envelope, callErr error) error {
	var exhausted *retry.ExhaustedError
	if errors.As(callErr, &exhausted) && d.queues.HasDead() {
		if exhausted.DeadLetterErr != nil {
			d.metrics.MessageRouted(telemetry.OutcomeFailed)
			return fmt.Errorf("route dead-letter: %w", exhausted.DeadLetterErr)
		}

		logger.Warn("retries exhausted, message dead-lettered",
			"queue", d.queues.Dead,
			"attempts", exhausted.Attempts,
			"error", exhausted.Last,
		)
		d.metrics.MessageRouted(telemetry.OutcomeDead)
		return nil
	}

	if !env.WantsError() {
		logger.Warn("call failed, error not requested", "error", callErr)
		d.metrics.MessageRouted(telemetry.OutcomeSkipped)
		return nil
	}

	if err := d.publisher.Publish(ctx, d.queues.Error, env.Failure(callErr.Error())); err != nil {
		d.metrics.MessageRouted(telemetry.OutcomeFailed)
		return fmt.Errorf("route error: %w", err)
	}

	logger.Warn("call failed, message sent to queue", "queue", d.queues.Error, "error", callErr)
	d.metrics.MessageRouted(telemetry.OutcomeError)
	return nil
}
