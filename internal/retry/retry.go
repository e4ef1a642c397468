// Package retry — ограниченное количество попыток для произвольной операции.
//
// Попытки идут подряд, без задержки между ними. Исчерпание бюджета
// возвращает *ExhaustedError, который отличается от ошибки самой операции:
// маршрутизация результата зависит от этого различия.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrRetriesExhausted — все попытки исчерпаны.
var ErrRetriesExhausted = errors.New("all retries failed")

// ExhaustedError — терминальная ошибка после maxAttempts неудачных попыток.
type ExhaustedError struct {
	// Attempts — количество выполненных попыток.
	Attempts int

	// Last — ошибка последней попытки.
	Last error

	// DeadLetterErr — ошибка обработчика исчерпания (nil, если успешно или не задан).
	DeadLetterErr error
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("%s after %d attempts: %v", ErrRetriesExhausted, e.Attempts, e.Last)
	if e.DeadLetterErr != nil {
		msg += fmt.Sprintf(" (dead-letter failed: %v)", e.DeadLetterErr)
	}
	return msg
}

// Is позволяет errors.Is(err, ErrRetriesExhausted).
// Ошибку последней попытки намеренно не разворачиваем: исчерпание
// не должно совпадать с ошибкой вызова.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrRetriesExhausted
}

// Operation — операция, которую можно повторить.
type Operation[T any] func(ctx context.Context) (T, error)

// ExhaustedFunc вызывается один раз после исчерпания попыток
// с ошибкой последней попытки (обычно — публикация в dead-letter очередь).
type ExhaustedFunc func(ctx context.Context, last error) error

// Retrier — настройки повторов.
type Retrier struct {
	logger *slog.Logger
}

// New создаёт Retrier.
func New(logger *slog.Logger) *Retrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{logger: logger}
}

// Do выполняет op с бюджетом maxAttempts.
//
//   - maxAttempts == 0: одна попытка, результат возвращается как есть,
//     onExhausted не вызывается.
//   - maxAttempts > 0: до maxAttempts попыток; первая успешная возвращается
//     сразу. После исчерпания вызывается onExhausted (если не nil)
//     и возвращается *ExhaustedError.
func Do[T any](ctx context.Context, r *Retrier, maxAttempts int, op Operation[T], onExhausted ExhaustedFunc) (T, error) {
	if maxAttempts <= 0 {
		return op(ctx)
	}

	var (
		zero    T
		lastErr error
	)

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := ctx.Err(); err != nil {
				return zero, fmt.Errorf("retry interrupted after %d attempts: %w", attempt-1, err)
			}
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		r.logger.Warn("attempt failed",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err,
		)
	}

	exhausted := &ExhaustedError{Attempts: maxAttempts, Last: lastErr}

	if onExhausted != nil {
		if err := onExhausted(ctx, lastErr); err != nil {
			r.logger.Error("dead-letter handler failed", "error", err)
			exhausted.DeadLetterErr = err
		}
	}

	return zero, exhausted
}
