package mq

import (
	"encoding/json"
	"fmt"
)

// Envelope — сообщение, которым бридж обменивается через любую очередь.
//
// Входящее сообщение (очередь process) содержит все поля.
// Исходящие (success, error, dead) — только id, action, data, error.
type Envelope struct {
	// ID — идентификатор сообщения, задаётся продюсером.
	ID string `json:"id"`

	// Action — ключ action в реестре.
	Action string `json:"action"`

	// Data — полезная нагрузка. Хранится как сырой JSON,
	// чтобы передаваться в сервис и обратно без изменений.
	Data json.RawMessage `json:"data,omitempty"`

	// Error — текст ошибки (только в error и dead очередях).
	Error string `json:"error,omitempty"`

	// NeedsResponse — публиковать ли результат в success очередь. Default: true.
	NeedsResponse *bool `json:"needsResponse,omitempty"`

	// NeedsError — публиковать ли ошибку в error очередь. Default: true.
	NeedsError *bool `json:"needsError,omitempty"`

	// Retries — количество попыток вызова. 0 — одна попытка без dead-letter.
	Retries int `json:"retries,omitempty"`
}

// WantsResponse возвращает needsResponse с учётом default.
func (e *Envelope) WantsResponse() bool {
	return e.NeedsResponse == nil || *e.NeedsResponse
}

// WantsError возвращает needsError с учётом default.
func (e *Envelope) WantsError() bool {
	return e.NeedsError == nil || *e.NeedsError
}

// MaxAttempts возвращает бюджет попыток. Отрицательные значения трактуются как 0.
func (e *Envelope) MaxAttempts() int {
	if e.Retries < 0 {
		return 0
	}
	return e.Retries
}

// Reply создаёт исходящее сообщение для success очереди.
func (e *Envelope) Reply(data json.RawMessage) *Envelope {
	return &Envelope{
		ID:     e.ID,
		Action: e.Action,
		Data:   data,
	}
}

// Failure создаёт исходящее сообщение для error или dead очереди.
// Data — исходная нагрузка входящего сообщения.
func (e *Envelope) Failure(errMsg string) *Envelope {
	return &Envelope{
		ID:     e.ID,
		Action: e.Action,
		Data:   e.Data,
		Error:  errMsg,
	}
}

// DecodeEnvelope парсит тело AMQP сообщения.
func DecodeEnvelope(body []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEnvelope, err)
	}
	if env.Data != nil && string(env.Data) == "null" {
		env.Data = nil
	}
	return &env, nil
}
