// Package action — реестр действий: ключ → HTTP-метод и путь сервиса.
package action

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Ошибки конфигурации реестра.
var (
	// ErrUnknownVerb — метод не входит в get, post, put, delete.
	ErrUnknownVerb = errors.New("unknown verb")

	// ErrDuplicateKey — ключ action встречается дважды.
	ErrDuplicateKey = errors.New("duplicate action key")

	// ErrEmptyKey — у action не задан ключ.
	ErrEmptyKey = errors.New("empty action key")
)

// Verb — HTTP-метод действия.
type Verb string

// Поддерживаемые методы.
const (
	VerbGet    Verb = "get"
	VerbPost   Verb = "post"
	VerbPut    Verb = "put"
	VerbDelete Verb = "delete"
)

// verbMethods — таблица допустимых методов.
var verbMethods = map[Verb]string{
	VerbGet:    http.MethodGet,
	VerbPost:   http.MethodPost,
	VerbPut:    http.MethodPut,
	VerbDelete: http.MethodDelete,
}

// ParseVerb нормализует и проверяет метод.
func ParseVerb(s string) (Verb, error) {
	v := Verb(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := verbMethods[v]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownVerb, s)
	}
	return v, nil
}

// Method возвращает HTTP-метод для net/http.
func (v Verb) Method() string {
	return verbMethods[v]
}

// HasBody — отправляется ли тело запроса. Только post и put.
func (v Verb) HasBody() bool {
	return v == VerbPost || v == VerbPut
}

// Action — действие сервиса.
type Action struct {
	Key  string
	Verb Verb
	Path string
}

// Spec — описание action из конфигурации, до валидации.
type Spec struct {
	Key  string `yaml:"key" json:"key"`
	Verb string `yaml:"verb" json:"verb"`
	Path string `yaml:"path" json:"path"`
}

// Registry — неизменяемый реестр действий.
type Registry struct {
	actions map[string]Action
	ordered []Action
}

// NewRegistry строит реестр и проверяет каждое действие.
// Ошибка — ошибка конфигурации, бридж не должен стартовать.
func NewRegistry(specs []Spec) (*Registry, error) {
	r := &Registry{
		actions: make(map[string]Action, len(specs)),
		ordered: make([]Action, 0, len(specs)),
	}

	for i, s := range specs {
		if s.Key == "" {
			return nil, fmt.Errorf("action #%d: %w", i, ErrEmptyKey)
		}
		if _, exists := r.actions[s.Key]; exists {
			return nil, fmt.Errorf("action %q: %w", s.Key, ErrDuplicateKey)
		}

		verb, err := ParseVerb(s.Verb)
		if err != nil {
			return nil, fmt.Errorf("action %q: %w", s.Key, err)
		}

		a := Action{Key: s.Key, Verb: verb, Path: s.Path}
		r.actions[s.Key] = a
		r.ordered = append(r.ordered, a)
	}

	return r, nil
}

// Resolve ищет action по ключу (точное совпадение).
// Отсутствие action не ошибка: решение принимает вызывающий код.
func (r *Registry) Resolve(key string) (Action, bool) {
	a, ok := r.actions[key]
	return a, ok
}

// All возвращает действия в порядке конфигурации.
func (r *Registry) All() []Action {
	out := make([]Action, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Len возвращает количество действий.
func (r *Registry) Len() int {
	return len(r.ordered)
}
