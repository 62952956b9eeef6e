package pubsub

import (
	"testing"
	"time"
)

func TestEmbeddedNATSStartAndClose(t *testing.T) {
	ps, err := NewEmbeddedNATSPubSub(DefaultEmbeddedNATSOptions())
	if err != nil {
		t.Fatalf("failed to start embedded NATS: %v", err)
	}

	if ps.ServerURL() == "" {
		t.Error("server URL should not be empty")
	}

	ch := ps.Subscribe()
	if ps.SubscriberCount() != 1 {
		t.Errorf("expected 1 subscriber, got %d", ps.SubscriberCount())
	}

	ps.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("channel should be closed after Close()")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestEmbeddedNATSPublishAndReceive(t *testing.T) {
	ps, err := NewEmbeddedNATSPubSub(DefaultEmbeddedNATSOptions())
	if err != nil {
		t.Fatalf("failed to start embedded NATS: %v", err)
	}
	defer ps.Close()

	// Let the JetStream subscription attach.
	time.Sleep(100 * time.Millisecond)

	ch := ps.Subscribe()

	ps.Publish(Event{
		Type:    EventStatsUpdated,
		Payload: map[string]any{"source": "csv"},
	})

	select {
	case received := <-ch:
		if received.Type != EventStatsUpdated {
			t.Errorf("expected type %s, got %s", EventStatsUpdated, received.Type)
		}
		if received.Payload["source"] != "csv" {
			t.Error("payload mismatch")
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for event")
	}
}

func TestEmbeddedNATSMultipleSubscribers(t *testing.T) {
	ps, err := NewEmbeddedNATSPubSub(DefaultEmbeddedNATSOptions())
	if err != nil {
		t.Fatalf("failed to start embedded NATS: %v", err)
	}
	defer ps.Close()

	time.Sleep(100 * time.Millisecond)

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	ch3 := ps.Subscribe()

	ps.Publish(Event{Type: EventBoardSaved})

	for i, ch := range []chan Event{ch1, ch2, ch3} {
		select {
		case received := <-ch:
			if received.Type != EventBoardSaved {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventBoardSaved, received.Type)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestEmbeddedNATSCustomOptions(t *testing.T) {
	opts := EmbeddedNATSOptions{
		Port:       0,
		Subject:    "custom.events",
		StreamName: "CUSTOM_STREAM",
	}

	ps, err := NewEmbeddedNATSPubSub(opts)
	if err != nil {
		t.Fatalf("failed to start embedded NATS with custom options: %v", err)
	}
	defer ps.Close()

	if ps.subject != "custom.events" {
		t.Errorf("expected subject custom.events, got %s", ps.subject)
	}
}

func TestDefaultEmbeddedNATSOptions(t *testing.T) {
	opts := DefaultEmbeddedNATSOptions()

	if opts.Port != -1 {
		t.Errorf("expected port -1 (random), got %d", opts.Port)
	}
	if opts.Subject != "balancer.events" {
		t.Errorf("expected subject balancer.events, got %s", opts.Subject)
	}
	if opts.StreamName != streamName {
		t.Errorf("expected stream name %s, got %s", streamName, opts.StreamName)
	}
}
