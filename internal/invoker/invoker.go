// Package invoker вызывает HTTP-сервис для action.
//
// URL: {host}:{port}/{stage}/{path}. Тело запроса — data из envelope,
// без изменений, только для post и put. Ответ 2xx возвращается как
// сырой JSON; всё остальное — *CallError.
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shaiso/mqbridge/internal/action"
	"github.com/shaiso/mqbridge/internal/mq"
)

const (
	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 200
)

// Config — конфигурация Invoker.
type Config struct {
	// Host — хост сервиса, со схемой (http://localhost). Без схемы — http.
	Host string

	// Port — порт сервиса (опционально).
	Port string

	// Stage — префикс пути (опционально).
	Stage string

	// Timeout — таймаут одного вызова. Default: 30s.
	Timeout time.Duration

	// Client — HTTP-клиент (опционально).
	Client *http.Client
}

// call — типизированный вызов для одного метода.
type call func(ctx context.Context, url string, body json.RawMessage) (json.RawMessage, error)

// Invoker выполняет HTTP-вызовы к сервису.
type Invoker struct {
	base    string
	stage   string
	timeout time.Duration
	client  *http.Client
	calls   map[action.Verb]call
}

// New создаёт Invoker.
func New(cfg Config) *Invoker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}

	i := &Invoker{
		base:    baseURL(cfg.Host, cfg.Port),
		stage:   cfg.Stage,
		timeout: timeout,
		client:  client,
	}

	i.calls = map[action.Verb]call{
		action.VerbGet:    i.get,
		action.VerbPost:   i.post,
		action.VerbPut:    i.put,
		action.VerbDelete: i.delete,
	}

	return i
}

// Invoke вызывает сервис для action с данными из envelope.
func (i *Invoker) Invoke(ctx context.Context, a action.Action, env *mq.Envelope) (json.RawMessage, error) {
	fn, ok := i.calls[a.Verb]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedVerb, a.Verb)
	}

	return fn(ctx, i.URL(a.Path), env.Data)
}

// URL собирает адрес вызова для пути action.
func (i *Invoker) URL(path string) string {
	segments := []string{i.base}
	for _, s := range []string{i.stage, path} {
		if s = strings.Trim(s, "/"); s != "" {
			segments = append(segments, s)
		}
	}
	return strings.Join(segments, "/")
}

func (i *Invoker) get(ctx context.Context, url string, _ json.RawMessage) (json.RawMessage, error) {
	return i.do(ctx, http.MethodGet, url, nil)
}

func (i *Invoker) delete(ctx context.Context, url string, _ json.RawMessage) (json.RawMessage, error) {
	return i.do(ctx, http.MethodDelete, url, nil)
}

func (i *Invoker) post(ctx context.Context, url string, body json.RawMessage) (json.RawMessage, error) {
	return i.do(ctx, http.MethodPost, url, body)
}

func (i *Invoker) put(ctx context.Context, url string, body json.RawMessage) (json.RawMessage, error) {
	return i.do(ctx, http.MethodPut, url, body)
}

// do выполняет запрос. body == nil — запрос без тела.
func (i *Invoker) do(ctx context.Context, method, url string, body json.RawMessage) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, &CallError{Method: method, URL: url, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, &CallError{Method: method, URL: url, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Method: method, URL: url, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &CallError{
			Method:     method,
			URL:        url,
			StatusCode: resp.StatusCode,
			Body:       truncate(string(respBody), maxErrorBodyLen),
		}
	}

	return decodeResponse(respBody), nil
}

// decodeResponse возвращает тело как JSON: валидный JSON — как есть,
// иначе — JSON-строка. Пустое тело — nil.
func decodeResponse(body []byte) json.RawMessage {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}

	encoded, _ := json.Marshal(string(body))
	return json.RawMessage(encoded)
}

// baseURL собирает схему, хост и порт.
func baseURL(host, port string) string {
	host = strings.TrimRight(host, "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if port != "" {
		host += ":" + port
	}
	return host
}

// truncate обрезает строку до maxLen байт, не разрезая UTF-8 символ.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
