package invoker

import (
	"errors"
	"fmt"
)

// Ошибки вызова сервиса.
var (
	// ErrCallFailed — HTTP-вызов завершился ошибкой (транспорт или не-2xx).
	ErrCallFailed = errors.New("service call failed")

	// ErrUnsupportedVerb — для метода нет функции вызова.
	ErrUnsupportedVerb = errors.New("unsupported verb")
)

// CallError — детали неудачного вызова.
type CallError struct {
	// Method и URL запроса.
	Method string
	URL    string

	// StatusCode — HTTP-код ответа (0 при ошибке транспорта).
	StatusCode int

	// Body — начало тела ответа.
	Body string

	// Err — ошибка транспорта (nil, если ответ получен).
	Err error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *CallError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCallFailed, e.Err}
	}
	return []error{ErrCallFailed}
}
