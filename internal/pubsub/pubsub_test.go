package pubsub

import (
	"sync"
	"testing"
	"time"
)

func TestSubscribeAndUnsubscribe(t *testing.T) {
	ps := New()

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()
	if ch1 == nil || ch2 == nil {
		t.Fatal("Subscribe() returned nil channel")
	}

	ps.mu.RLock()
	if len(ps.subscribers) != 2 {
		t.Errorf("expected 2 subscribers, got %d", len(ps.subscribers))
	}
	ps.mu.RUnlock()

	ps.Unsubscribe(ch1)

	ps.mu.RLock()
	if len(ps.subscribers) != 1 {
		t.Errorf("expected 1 subscriber after unsubscribe, got %d", len(ps.subscribers))
	}
	ps.mu.RUnlock()

	select {
	case _, ok := <-ch1:
		if ok {
			t.Error("channel should be closed after unsubscribe")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}

func TestPublishNoSubscribers(t *testing.T) {
	ps := New()

	// Should not panic.
	ps.Publish(Event{Type: EventStatsUpdated})
}

func TestPublishFanOut(t *testing.T) {
	ps := New()
	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()

	event := Event{
		Type:    EventBoardSaved,
		Payload: map[string]any{"id": "board_0a1b2c3d"},
	}
	ps.Publish(event)

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventBoardSaved {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventBoardSaved, received.Type)
			}
			if received.Payload["id"] != "board_0a1b2c3d" {
				t.Errorf("subscriber %d: payload mismatch", i)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestPublishDropsWhenChannelFull(t *testing.T) {
	ps := New()
	ch := ps.Subscribe()

	// Channel buffer is 10; overflow must be dropped, not block.
	for i := 0; i < 15; i++ {
		ps.Publish(Event{Type: EventStatsUpdated})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			if count != 10 {
				t.Errorf("expected 10 buffered events, got %d", count)
			}
			return
		}
	}
}

func TestConcurrentSubscribeUnsubscribe(t *testing.T) {
	ps := New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ch := ps.Subscribe()
			time.Sleep(time.Millisecond)
			ps.Unsubscribe(ch)
		}()
		go func() {
			defer wg.Done()
			ps.Publish(Event{Type: EventResolutionsChanged})
		}()
	}
	wg.Wait()

	ps.mu.RLock()
	defer ps.mu.RUnlock()
	if len(ps.subscribers) != 0 {
		t.Errorf("expected 0 subscribers after all unsubscribed, got %d", len(ps.subscribers))
	}
}

func TestUnsubscribeUnknownChannel(t *testing.T) {
	ps := New()
	ch := make(chan Event, 1)

	// A channel pubsub never handed out must be left alone.
	ps.Unsubscribe(ch)

	select {
	case ch <- Event{Type: EventStatsUpdated}:
	default:
		t.Error("unmanaged channel should still be open")
	}
}

// recordingUpstream implements Upstream for bridge tests.
type recordingUpstream struct {
	mu          sync.Mutex
	published   []Event
	subscribers []chan Event
}

func (m *recordingUpstream) Publish(event Event) {
	m.mu.Lock()
	m.published = append(m.published, event)
	subs := make([]chan Event, len(m.subscribers))
	copy(subs, m.subscribers)
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (m *recordingUpstream) Subscribe() chan Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan Event, 100)
	m.subscribers = append(m.subscribers, ch)
	return ch
}

func (m *recordingUpstream) Unsubscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, sub := range m.subscribers {
		if sub == ch {
			close(ch)
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			break
		}
	}
}

func (m *recordingUpstream) publishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.published))
	copy(out, m.published)
	return out
}

func TestPublishRoutesThroughUpstream(t *testing.T) {
	upstream := &recordingUpstream{}
	ps := NewWithUpstream(upstream)

	// Let the bridge goroutine attach.
	time.Sleep(10 * time.Millisecond)

	ch := ps.Subscribe()
	ps.Publish(Event{Type: EventStatsUpdated})

	time.Sleep(10 * time.Millisecond)
	published := upstream.publishedEvents()
	if len(published) != 1 {
		t.Fatalf("expected 1 event at upstream, got %d", len(published))
	}

	// The event must come back to local subscribers via the bridge.
	select {
	case received := <-ch:
		if received.Type != EventStatsUpdated {
			t.Errorf("expected type %s, got %s", EventStatsUpdated, received.Type)
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("timeout waiting for bridged event")
	}
}

func TestUpstreamEventsReachLocalSubscribers(t *testing.T) {
	upstream := &recordingUpstream{}
	ps := NewWithUpstream(upstream)

	time.Sleep(10 * time.Millisecond)

	ch1 := ps.Subscribe()
	ch2 := ps.Subscribe()

	// Another instance publishing to the shared upstream.
	upstream.Publish(Event{Type: EventBoardDeleted})

	for i, ch := range []chan Event{ch1, ch2} {
		select {
		case received := <-ch:
			if received.Type != EventBoardDeleted {
				t.Errorf("subscriber %d: expected type %s, got %s", i, EventBoardDeleted, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Errorf("subscriber %d: timeout waiting for event", i)
		}
	}
}

func TestMockNATSRetainsMessages(t *testing.T) {
	mock, err := NewMockNATSPubSub("", "balancer.events")
	if err != nil {
		t.Fatalf("NewMockNATSPubSub: %v", err)
	}
	defer mock.Close()

	for i := 0; i < 5; i++ {
		mock.Publish(Event{Type: EventStatsUpdated})
	}
	if mock.MessageCount() != 5 {
		t.Errorf("expected 5 retained messages, got %d", mock.MessageCount())
	}

	ch := make(chan Event, 10)
	mock.Replay(ch, 3)
	if len(ch) != 3 {
		t.Errorf("expected 3 replayed messages, got %d", len(ch))
	}
}
