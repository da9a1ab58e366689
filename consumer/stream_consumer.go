// Package consumer bridges the Redis login-event stream back into the local
// subscription hub, so events published by other service instances reach the
// admin and visitor sessions connected to this one.
package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/vote-portal/login-approval-service/realtime"
	"github.com/vote-portal/login-approval-service/redis"

	goredis "github.com/redis/go-redis/v9"
)

const (
	maxRetry       = 5
	blockTimeout   = 5 * time.Second
	pendingTimeout = 1 * time.Minute // Time before a message is considered "stuck"
)

// dlqStream receives messages that repeatedly failed to decode
const dlqStream = realtime.StreamName + "_dlq"

// StreamConsumer holds the logic for consuming from the Redis Stream.
type StreamConsumer struct {
	client *redis.Client
	hub    *realtime.Hub
	// group and consumer are instance-scoped: every instance keeps its own
	// consumer group so each one sees the full event flow (fan-out, not
	// work-sharing).
	group    string
	consumer string
	// origin is this instance's publish identity; its own events are
	// already delivered locally and are skipped here.
	origin string
}

// NewStreamConsumer creates a new consumer and ensures the stream group exists.
func NewStreamConsumer(client *redis.Client, hub *realtime.Hub, origin string) (*StreamConsumer, error) {
	group := fmt.Sprintf("broadcast-%s", origin)
	consumer := fmt.Sprintf("%s-reader", origin)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.EnsureStreamGroupExists(ctx, realtime.StreamName, group); err != nil {
		return nil, err
	}
	slog.Info("Consumer group ensured", "group", group, "stream", realtime.StreamName)

	return &StreamConsumer{
		client:   client,
		hub:      hub,
		group:    group,
		consumer: consumer,
		origin:   origin,
	}, nil
}

// Start consuming events in a blocking loop.
// This should be run in a goroutine from main.
func (c *StreamConsumer) Start(ctx context.Context) {
	slog.Info("Starting login event stream consumer", "group", c.group)
	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer shutting down")
			return
		default:
			// First, check for any old, "stuck" messages to reclaim.
			c.claimPendingMessages(ctx)

			// Now, read new messages.
			c.readNewMessages(ctx)
		}
	}
}

// readNewMessages reads new messages from the stream.
func (c *StreamConsumer) readNewMessages(ctx context.Context) {
	msgs, err := c.client.ReadFromStreamGroup(ctx, realtime.StreamName, c.group, c.consumer, blockTimeout)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		slog.Error("Error reading from stream group", "error", err)
		time.Sleep(1 * time.Second) // Avoid spamming on repeated errors
		return
	}

	for _, msg := range msgs {
		c.processMessage(ctx, msg)
	}
}

// claimPendingMessages checks for "stuck" messages and processes them.
func (c *StreamConsumer) claimPendingMessages(ctx context.Context) {
	pending, err := c.client.GetPendingMessages(ctx, realtime.StreamName, c.group, c.consumer)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("Error checking pending messages", "error", err)
		}
		return
	}

	for _, p := range pending {
		if p.Idle > pendingTimeout {
			slog.Info("Re-claiming idle message", "msg_id", p.ID)

			claimedMsgs, err := c.client.ClaimMessages(ctx, realtime.StreamName, c.group, c.consumer, pendingTimeout, []string{p.ID})
			if err != nil {
				slog.Error("Error claiming message", "msg_id", p.ID, "error", err)
				continue
			}

			for _, msg := range claimedMsgs {
				c.processMessage(ctx, msg)
			}
		}
	}
}

// processMessage decodes a stream message, fans it out locally, and acknowledges it.
func (c *StreamConsumer) processMessage(ctx context.Context, msg goredis.XMessage) {
	event, topic, err := decodeStreamMessage(msg.Values)

	if err == nil {
		// Skip events this instance published; the bridge already
		// delivered them to local subscribers.
		if event.Origin != c.origin {
			c.hub.Publish(topic, event)
		}
		c.ack(ctx, msg.ID)
		return
	}

	slog.Warn("Failed to decode stream message", "msg_id", msg.ID, "error", err)

	// A message that cannot be decoded will never succeed; park it in the
	// DLQ after the retry budget instead of redelivering forever.
	if deliveryCount(ctx, c, msg.ID) > maxRetry {
		dlqData := map[string]interface{}{}
		for k, v := range msg.Values {
			dlqData[k] = v
		}
		dlqData["_error"] = err.Error()
		dlqData["_original_id"] = msg.ID
		dlqData["_failed_at"] = time.Now().Format(time.RFC3339)

		if _, dlqErr := c.client.PublishEvent(ctx, dlqStream, dlqData); dlqErr != nil {
			slog.Error("Could not move message to DLQ", "msg_id", msg.ID, "error", dlqErr)
			return // Don't ACK, let it retry.
		}
		c.ack(ctx, msg.ID)
	}
	// Below the retry limit: don't ACK, the message will be redelivered.
}

func (c *StreamConsumer) ack(ctx context.Context, msgID string) {
	if err := c.client.AckMessage(ctx, realtime.StreamName, c.group, msgID); err != nil {
		slog.Error("Failed to ack message", "msg_id", msgID, "error", err)
	}
}

// deliveryCount looks up how many times a message has been delivered to this consumer
func deliveryCount(ctx context.Context, c *StreamConsumer, msgID string) int64 {
	pending, err := c.client.GetPendingMessages(ctx, realtime.StreamName, c.group, c.consumer)
	if err != nil {
		return 0
	}
	for _, p := range pending {
		if p.ID == msgID {
			return p.RetryCount
		}
	}
	return 0
}

// decodeStreamMessage rebuilds a realtime.Event from the flattened XADD values
func decodeStreamMessage(values map[string]interface{}) (realtime.Event, string, error) {
	name, _ := values["name"].(string)
	topic, _ := values["topic"].(string)
	if name == "" || topic == "" {
		return realtime.Event{}, "", fmt.Errorf("stream message missing name or topic")
	}

	event := realtime.Event{Name: name}
	if action, ok := values["action"].(string); ok {
		event.Action = action
	}
	if origin, ok := values["origin"].(string); ok {
		event.Origin = origin
	}
	if data, ok := values["data"].(string); ok && data != "" {
		if !json.Valid([]byte(data)) {
			return realtime.Event{}, "", fmt.Errorf("stream message carries invalid JSON data")
		}
		event.Data = json.RawMessage(data)
	}
	if ts, ok := values["timestamp"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			event.Timestamp = parsed
		}
	}

	return event, topic, nil
}
