package mq

import "sync/atomic"

// Readiness — состояние готовности бриджа.
//
// NotReady → Ready, ровно один раз за время жизни процесса.
// Обратного перехода нет: при потере соединения процесс завершается.
type Readiness struct {
	ready atomic.Bool
}

// MarkReady переводит состояние в Ready.
// Возвращает false, если состояние уже было Ready.
func (r *Readiness) MarkReady() bool {
	return r.ready.CompareAndSwap(false, true)
}

// IsReady проверяет, готов ли бридж обрабатывать сообщения.
func (r *Readiness) IsReady() bool {
	return r.ready.Load()
}
