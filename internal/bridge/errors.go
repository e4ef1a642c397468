package bridge

import "errors"

// Ошибки бриджа.
var (
	// ErrNotReady — сообщение пришло до подписки на очередь process.
	ErrNotReady = errors.New("bridge is not initialized")

	// ErrActionNotFound — action из сообщения нет в реестре.
	// Сообщение отбрасывается, в очереди ничего не публикуется.
	ErrActionNotFound = errors.New("action not found")

	// ErrLocalServiceExited — локальный сервис завершился с ошибкой.
	ErrLocalServiceExited = errors.New("local service exited")
)
