package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func TestReadiness_TransitionsOnce(t *testing.T) {
	var r Readiness

	if r.IsReady() {
		t.Fatal("should start not ready")
	}
	if !r.MarkReady() {
		t.Error("first MarkReady should transition")
	}
	if r.MarkReady() {
		t.Error("second MarkReady should be a no-op")
	}
	if !r.IsReady() {
		t.Error("should be ready")
	}
}

func TestConnection_ConnectInvalidURL(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "invalid://url"})

	if err := conn.Connect(context.Background()); err == nil {
		t.Fatal("expected error for invalid URL")
	}
	if conn.IsConnected() {
		t.Error("should not be connected")
	}
}

func TestConnection_ConnectCancelledContext(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := conn.Connect(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConnection_OpenChannelBeforeConnect(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})

	err := conn.OpenChannel(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestConnection_WithChannelWithoutChannel(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})

	called := false
	err := conn.WithChannel(context.Background(), func(_ *amqp.Channel) error {
		called = true
		return nil
	})

	if !errors.Is(err, ErrNoChannel) {
		t.Fatalf("expected ErrNoChannel, got %v", err)
	}
	if called {
		t.Error("fn should not be called without channel")
	}
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})

	if err := conn.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Fatalf("second close should be no-op, got %v", err)
	}

	select {
	case <-conn.Done():
	case <-time.After(time.Second):
		t.Fatal("Done should be closed after Close")
	}

	if conn.Err() != nil {
		t.Errorf("graceful close should not report error, got %v", conn.Err())
	}

	if err := conn.Connect(context.Background()); !errors.Is(err, ErrConnectionClosed) {
		t.Errorf("connect after close should fail with ErrConnectionClosed, got %v", err)
	}
}

func TestConnection_ReadinessQuery(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})

	if conn.IsReady() {
		t.Fatal("should start not ready")
	}
	conn.MarkReady()
	if !conn.IsReady() {
		t.Error("should be ready after MarkReady")
	}
}

func TestConnection_AMQPConfigWithAuth(t *testing.T) {
	conn := NewConnection(ConnectionConfig{
		URL:  "amqp://localhost:5672/",
		Auth: &Credentials{Username: "user", Password: "secret"},
		Name: "mqbridge-test",
	})

	cfg := conn.amqpConfig()

	if len(cfg.SASL) != 1 {
		t.Fatalf("expected one SASL mechanism, got %d", len(cfg.SASL))
	}
	plain, ok := cfg.SASL[0].(*amqp.PlainAuth)
	if !ok {
		t.Fatalf("expected PlainAuth, got %T", cfg.SASL[0])
	}
	if plain.Username != "user" || plain.Password != "secret" {
		t.Errorf("unexpected credentials: %+v", plain)
	}
	if cfg.Properties["connection_name"] != "mqbridge-test" {
		t.Errorf("expected connection name, got %v", cfg.Properties["connection_name"])
	}
}

func TestConnection_AMQPConfigWithoutAuth(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})

	if cfg := conn.amqpConfig(); cfg.SASL != nil {
		t.Errorf("SASL should be empty, got %v", cfg.SASL)
	}
}
