package mq

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestQueues_All(t *testing.T) {
	q := Queues{Process: "p", Success: "s", Error: "e"}

	if q.HasDead() {
		t.Error("dead should not be configured")
	}
	if got := q.All(); len(got) != 3 {
		t.Errorf("expected 3 queues, got %v", got)
	}

	q.Dead = "d"
	got := q.All()
	if len(got) != 4 || got[3] != "d" {
		t.Errorf("expected dead queue last, got %v", got)
	}
}

func TestTopologyInfo(t *testing.T) {
	info := TopologyInfo(Queues{Process: "integration", Success: "integration-success", Error: "integration-error"}, "")

	for _, want := range []string{"integration", "integration-success", "integration-error", "(not configured)", "auto-ack"} {
		if !strings.Contains(info, want) {
			t.Errorf("topology info should contain %q:\n%s", want, info)
		}
	}
}

func TestTopologyInfo_ManualAck(t *testing.T) {
	info := TopologyInfo(Queues{Process: "p", Success: "s", Error: "e", Dead: "d"}, AckManual)

	if !strings.Contains(info, "manual-ack") {
		t.Errorf("topology info should show the ack mode:\n%s", info)
	}
	if strings.Contains(info, "auto-ack") {
		t.Errorf("manual consumer must not be shown as auto-ack:\n%s", info)
	}
}

func TestPublisher_NoChannel(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})
	p := NewPublisher(conn, nil)

	err := p.Publish(context.Background(), "q", &Envelope{ID: "1", Action: "a", Data: json.RawMessage(`{}`)})

	if !errors.Is(err, ErrPublish) {
		t.Errorf("expected ErrPublish, got %v", err)
	}
	if !errors.Is(err, ErrNoChannel) {
		t.Errorf("expected ErrNoChannel in chain, got %v", err)
	}
}

func TestConsumer_RunWithoutSubscribe(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})
	c := NewConsumer(conn, ConsumerConfig{
		Queue:   "q",
		Handler: func(context.Context, *Envelope) error { return nil },
	})

	if err := c.Run(context.Background()); err == nil {
		t.Fatal("expected error when running without subscription")
	}
	if c.ackMode != AckAuto {
		t.Errorf("ack mode should default to auto, got %s", c.ackMode)
	}
}

func TestConsumer_SubscribeWithoutChannel(t *testing.T) {
	conn := NewConnection(ConnectionConfig{URL: "amqp://localhost:5672/"})
	c := NewConsumer(conn, ConsumerConfig{Queue: "q", MaxInFlight: 4, AckMode: AckManual})

	if err := c.Subscribe(context.Background()); !errors.Is(err, ErrNoChannel) {
		t.Fatalf("expected ErrNoChannel, got %v", err)
	}
	if c.sem == nil || c.limit != 4 {
		t.Error("semaphore should be configured for MaxInFlight")
	}
}
