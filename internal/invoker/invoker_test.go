package invoker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shaiso/mqbridge/internal/action"
	"github.com/shaiso/mqbridge/internal/mq"
)

// recorded — то, что получил тестовый сервер.
type recorded struct {
	method      string
	path        string
	body        string
	contentType string
}

func newServer(t *testing.T, status int, response string, rec *recorded) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		*rec = recorded{
			method:      r.Method,
			path:        r.URL.Path,
			body:        string(body),
			contentType: r.Header.Get("Content-Type"),
		}
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(server.Close)

	return server
}

func TestInvoke_GET_ScenarioA(t *testing.T) {
	var rec recorded
	server := newServer(t, http.StatusOK, `{"msg":"hi"}`, &rec)

	inv := New(Config{Host: server.URL, Stage: "dev"})
	a := action.Action{Key: "hello", Verb: action.VerbGet, Path: "hello"}

	data, err := inv.Invoke(context.Background(), a, &mq.Envelope{ID: "1", Action: "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.method != http.MethodGet {
		t.Errorf("expected GET, got %s", rec.method)
	}
	if rec.path != "/dev/hello" {
		t.Errorf("expected /dev/hello, got %s", rec.path)
	}
	if string(data) != `{"msg":"hi"}` {
		t.Errorf("response should be forwarded verbatim, got %s", data)
	}
}

func TestInvoke_NoBodyForGetAndDelete(t *testing.T) {
	for _, verb := range []action.Verb{action.VerbGet, action.VerbDelete} {
		var rec recorded
		server := newServer(t, http.StatusOK, `{}`, &rec)

		inv := New(Config{Host: server.URL})
		env := &mq.Envelope{ID: "1", Action: "x", Data: json.RawMessage(`{"ignored":true}`)}

		if _, err := inv.Invoke(context.Background(), action.Action{Verb: verb, Path: "x"}, env); err != nil {
			t.Fatalf("%s: unexpected error: %v", verb, err)
		}

		// get/delete никогда не отправляют тело
		if rec.body != "" {
			t.Errorf("%s: expected empty body, got %q", verb, rec.body)
		}
		if rec.method != verb.Method() {
			t.Errorf("%s: expected method %s, got %s", verb, verb.Method(), rec.method)
		}
	}
}

func TestInvoke_BodyForPostAndPutIsVerbatim(t *testing.T) {
	// Нестандартное форматирование — проверяем отсутствие перекодирования
	data := `{"b": 2,   "a":[1, 2]}`

	for _, verb := range []action.Verb{action.VerbPost, action.VerbPut} {
		var rec recorded
		server := newServer(t, http.StatusCreated, `{"id":"123"}`, &rec)

		inv := New(Config{Host: server.URL})
		env := &mq.Envelope{ID: "1", Action: "x", Data: json.RawMessage(data)}

		if _, err := inv.Invoke(context.Background(), action.Action{Verb: verb, Path: "items"}, env); err != nil {
			t.Fatalf("%s: unexpected error: %v", verb, err)
		}

		if rec.body != data {
			t.Errorf("%s: body should equal data exactly, got %q", verb, rec.body)
		}
		if rec.contentType != "application/json" {
			t.Errorf("%s: expected Content-Type application/json, got %q", verb, rec.contentType)
		}
	}
}

func TestInvoke_ErrorStatus(t *testing.T) {
	var rec recorded
	server := newServer(t, http.StatusInternalServerError, `{"error":"internal"}`, &rec)

	inv := New(Config{Host: server.URL})
	_, err := inv.Invoke(context.Background(), action.Action{Verb: action.VerbGet, Path: "x"}, &mq.Envelope{})

	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %T", err)
	}
	if callErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", callErr.StatusCode)
	}
	if callErr.Body != `{"error":"internal"}` {
		t.Errorf("unexpected body: %q", callErr.Body)
	}
}

func TestInvoke_ErrorBodyTruncatedOnRuneBoundary(t *testing.T) {
	var rec recorded
	// "я" — 2 байта: граница maxErrorBodyLen попадает внутрь символа
	response := "x" + strings.Repeat("я", maxErrorBodyLen)
	server := newServer(t, http.StatusBadGateway, response, &rec)

	inv := New(Config{Host: server.URL})
	_, err := inv.Invoke(context.Background(), action.Action{Verb: action.VerbGet, Path: "x"}, &mq.Envelope{})

	var callErr *CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("expected *CallError, got %v", err)
	}
	if !utf8.ValidString(callErr.Body) {
		t.Fatalf("truncated body is not valid UTF-8: %q", callErr.Body)
	}
	if !strings.HasSuffix(callErr.Body, "...") {
		t.Errorf("truncated body should end with ellipsis: %q", callErr.Body)
	}
	if n := len(strings.TrimSuffix(callErr.Body, "...")); n > maxErrorBodyLen {
		t.Errorf("truncated body is %d bytes, want <= %d", n, maxErrorBodyLen)
	}

	failure, _ := json.Marshal((&mq.Envelope{ID: "1"}).Failure(err.Error()))
	if strings.Contains(string(failure), `\ufffd`) {
		t.Errorf("error field contains a replacement character: %s", failure)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"abcdef", 3, "abc..."},
		{"aяb", 2, "a..."},
		{"яя", 3, "я..."},
		{"яя", 4, "яя"},
	}

	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestInvoke_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	inv := New(Config{Host: url})
	_, err := inv.Invoke(context.Background(), action.Action{Verb: action.VerbGet, Path: "x"}, &mq.Envelope{})

	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}

	var callErr *CallError
	if errors.As(err, &callErr) && callErr.StatusCode != 0 {
		t.Errorf("transport failure should not have status, got %d", callErr.StatusCode)
	}
}

func TestInvoke_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	inv := New(Config{Host: server.URL, Timeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := inv.Invoke(context.Background(), action.Action{Verb: action.VerbGet, Path: "slow"}, &mq.Envelope{})

	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("timeout should be a call failure, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded in chain, got %v", err)
	}
	if time.Since(start) > 400*time.Millisecond {
		t.Error("request should be cancelled by timeout")
	}
}

func TestInvoke_NonJSONResponse(t *testing.T) {
	var rec recorded
	server := newServer(t, http.StatusOK, `plain text`, &rec)

	inv := New(Config{Host: server.URL})
	data, err := inv.Invoke(context.Background(), action.Action{Verb: action.VerbGet, Path: "x"}, &mq.Envelope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(data) != `"plain text"` {
		t.Errorf("non-JSON body should be a JSON string, got %s", data)
	}
}

func TestInvoke_EmptyResponse(t *testing.T) {
	var rec recorded
	server := newServer(t, http.StatusNoContent, ``, &rec)

	inv := New(Config{Host: server.URL})
	data, err := inv.Invoke(context.Background(), action.Action{Verb: action.VerbDelete, Path: "x"}, &mq.Envelope{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil data, got %s", data)
	}
}

func TestInvoke_UnsupportedVerb(t *testing.T) {
	inv := New(Config{Host: "http://localhost"})
	_, err := inv.Invoke(context.Background(), action.Action{Verb: "patch", Path: "x"}, &mq.Envelope{})

	if !errors.Is(err, ErrUnsupportedVerb) {
		t.Fatalf("expected ErrUnsupportedVerb, got %v", err)
	}
}

func TestURL(t *testing.T) {
	cases := []struct {
		cfg  Config
		path string
		want string
	}{
		{Config{Host: "http://localhost", Port: "3000", Stage: "dev"}, "hello", "http://localhost:3000/dev/hello"},
		{Config{Host: "http://localhost/", Port: "3000", Stage: "/dev/"}, "/hello", "http://localhost:3000/dev/hello"},
		{Config{Host: "http://localhost", Port: "3000"}, "hello", "http://localhost:3000/hello"},
		{Config{Host: "localhost", Port: "8080", Stage: "prod"}, "a/b", "http://localhost:8080/prod/a/b"},
		{Config{Host: "https://api.example.com", Stage: "v1"}, "items", "https://api.example.com/v1/items"},
	}

	for _, tc := range cases {
		if got := New(tc.cfg).URL(tc.path); got != tc.want {
			t.Errorf("URL(%+v, %q) = %q, want %q", tc.cfg, tc.path, got, tc.want)
		}
	}
}
