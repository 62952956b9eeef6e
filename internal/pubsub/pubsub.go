package pubsub

import (
	"sync"

	"github.com/tht-tools/team-balancer/internal/logger"
)

// Event types published by the dashboard.
const (
	EventStatsUpdated       = "stats:updated"
	EventBoardSaved         = "board:saved"
	EventBoardDeleted       = "board:deleted"
	EventResolutionsChanged = "resolutions:changed"
)

// Event is a single dashboard notification, fanned out to every connected
// browser over SSE.
type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Upstream is a cross-instance publisher (NATS in production). Events
// published through an upstream come back via its subscription, so every
// instance sees every event exactly once.
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

// PubSub fans events out to in-process subscribers, optionally bridging
// through an upstream so multiple instances stay in sync.
type PubSub struct {
	mu          sync.RWMutex
	subscribers []chan Event
	upstream    Upstream
}

// New creates a local-only PubSub.
func New() *PubSub {
	return &PubSub{subscribers: []chan Event{}}
}

// NewWithUpstream creates a PubSub bridged to an upstream publisher.
// Publishes go to the upstream; events arriving from the upstream are
// forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := &PubSub{
		subscribers: []chan Event{},
		upstream:    upstream,
	}

	go func() {
		ch := upstream.Subscribe()
		for event := range ch {
			ps.publishLocal(event)
		}
		logger.Debug("pubsub upstream channel closed")
	}()

	return ps
}

// Subscribe registers a new subscriber and returns its event channel.
func (ps *PubSub) Subscribe() chan Event {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ch := make(chan Event, 10)
	ps.subscribers = append(ps.subscribers, ch)
	logger.Debug("pubsub subscriber added", "total", len(ps.subscribers))
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	for i, sub := range ps.subscribers {
		if sub == ch {
			close(ch)
			ps.subscribers = append(ps.subscribers[:i], ps.subscribers[i+1:]...)
			break
		}
	}
}

// Publish delivers an event. With an upstream configured the event goes
// there and returns to us via the bridge subscription; otherwise it is
// delivered locally.
func (ps *PubSub) Publish(event Event) {
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

func (ps *PubSub) publishLocal(event Event) {
	ps.mu.RLock()
	subs := make([]chan Event, len(ps.subscribers))
	copy(subs, ps.subscribers)
	ps.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
			// Slow subscriber, drop rather than block.
		}
	}
}
