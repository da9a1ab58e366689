package realtime

import (
	"context"
	"log/slog"
	"time"
)

// StreamPublisher is the slice of the Redis client the bridge needs.
// Kept as an interface so tests can substitute a fake.
type StreamPublisher interface {
	PublishEvent(ctx context.Context, streamName string, data map[string]interface{}) (string, error)
}

// StreamName is the Redis Stream carrying login events between instances
const StreamName = "login-events"

const (
	publishRetries = 5
	publishBackoff = 500 * time.Millisecond
)

// Bridge fans events out to local subscribers and mirrors them onto the
// Redis Stream so other instances can deliver them to their own subscribers.
// Local delivery is synchronous, which preserves per-id ordering; the stream
// write is best-effort and retried in the background, never failing the
// triggering state transition.
type Bridge struct {
	hub       *Hub
	publisher StreamPublisher
	origin    string
}

// NewBridge creates a bridge around the given hub. publisher may be nil for
// single-instance deployments; events are then delivered locally only.
func NewBridge(hub *Hub, publisher StreamPublisher, origin string) *Bridge {
	return &Bridge{hub: hub, publisher: publisher, origin: origin}
}

// Hub returns the local subscription registry
func (b *Bridge) Hub() *Hub {
	return b.hub
}

// Publish delivers the event locally and mirrors it onto the stream
func (b *Bridge) Publish(topic string, event Event) {
	event.Origin = b.origin
	event.Timestamp = time.Now().UTC()
	b.hub.Publish(topic, event)

	if b.publisher != nil {
		go b.publishToStream(topic, event)
	}
}

// publishToStream writes the event to the Redis Stream with backoff retry.
// Failures are logged and abandoned after the retry budget; subscribers on
// other instances will resync from the store on their next fetch.
func (b *Bridge) publishToStream(topic string, event Event) {
	values := map[string]interface{}{
		"name":      event.Name,
		"topic":     topic,
		"action":    event.Action,
		"data":      string(event.Data),
		"origin":    event.Origin,
		"timestamp": event.Timestamp.Format(time.RFC3339Nano),
	}

	var err error
	for attempt := 1; attempt <= publishRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err = b.publisher.PublishEvent(ctx, StreamName, values)
		cancel()
		if err == nil {
			return
		}
		slog.Warn("Failed to publish event to stream, retrying",
			"topic", topic, "event", event.Name, "attempt", attempt, "error", err)
		time.Sleep(publishBackoff * time.Duration(attempt))
	}

	slog.Error("Giving up publishing event to stream",
		"topic", topic, "event", event.Name, "error", err)
}
