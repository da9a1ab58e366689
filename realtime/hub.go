// Package realtime implements the topic-scoped event fan-out for admin and
// visitor sessions. Delivery is at-least-once while a subscription is open;
// nothing is retained across disconnects, so clients re-fetch current state
// on reconnect.
package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"
)

// Event names pushed over the realtime channel
const (
	EventLoginUpdate = "login_update"
	EventAuditLog    = "audit_log"
)

// TopicAdmin is the global channel all admin listeners join
const TopicAdmin = "admin"

// TopicLoginPrefix prefixes the per-request visitor topics
const TopicLoginPrefix = "login:"

// LoginTopic returns the per-request room a visitor session subscribes to
func LoginTopic(loginID string) string {
	return TopicLoginPrefix + loginID
}

// Event is one state-change notification delivered to subscribers
type Event struct {
	// Name is the event kind: login_update or audit_log
	Name string `json:"name"`
	// Topic is the room the event was published to
	Topic string `json:"topic"`
	// Action is the triggering action, e.g. approve_login
	Action string `json:"action,omitempty"`
	// Data is the updated record (or a narrowed view of it)
	Data json.RawMessage `json:"data,omitempty"`
	// Origin identifies the publishing instance so the stream bridge
	// can skip events this process already delivered locally
	Origin string `json:"origin,omitempty"`
	// Timestamp is when the event was published
	Timestamp time.Time `json:"timestamp"`
}

// subscriber buffer size; a session that falls this far behind is considered
// dead weight and loses events rather than blocking every other subscriber.
const subscriberBuffer = 16

// Hub is the per-connection subscription registry. One hub serves the whole
// process; topics are created on first subscribe and removed when empty.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[chan Event]struct{}
}

// NewHub creates an empty subscription registry
func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan Event]struct{})}
}

// Subscribe registers a new subscriber on the given topic and returns the
// event channel plus a cancel function. The channel is closed on cancel.
func (h *Hub) Subscribe(topic string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan Event]struct{})
		h.topics[topic] = subs
	}
	subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, ch)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			h.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber of the topic. A subscriber
// whose buffer is full is skipped; it will resync via a state re-fetch.
func (h *Hub) Publish(topic string, event Event) {
	event.Topic = topic
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.topics[topic] {
		select {
		case ch <- event:
		default:
			slog.Warn("Dropping event for slow subscriber", "topic", topic, "event", event.Name)
		}
	}
}

// SubscriberCount reports the number of open subscriptions on a topic
func (h *Hub) SubscriberCount(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
