package mq

import "errors"

// Ошибки брокера.
var (
	// ErrNotConnected — соединение с RabbitMQ ещё не установлено.
	ErrNotConnected = errors.New("not connected to broker")

	// ErrNoChannel — канал не открыт.
	ErrNoChannel = errors.New("no channel available")

	// ErrConnectionClosed — соединение закрыто брокером или вызовом Close.
	ErrConnectionClosed = errors.New("broker connection closed")

	// ErrPublish — не удалось опубликовать сообщение.
	ErrPublish = errors.New("publish failed")

	// ErrMalformedEnvelope — тело сообщения не является корректным envelope.
	ErrMalformedEnvelope = errors.New("malformed envelope")
)
