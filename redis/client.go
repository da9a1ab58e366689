package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds all configuration for the Redis client
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int
}

// Client is a wrapper around the go-redis client.
// It provides specific methods for the login event stream.
type Client struct {
	client *redis.Client
	config *Config
}

// NewClient creates and connects a new Client.
func NewClient(cfg *Config) (*Client, error) {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.Username != "" {
		opts.Username = cfg.Username
	}

	rdb := redis.NewClient(opts)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		client: rdb,
		config: cfg,
	}, nil
}

// Close gracefully closes the Redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// PublishEvent adds an event to the stream using XADD.
// 'data' should be a map[string]interface{} representing the event.
func (c *Client) PublishEvent(ctx context.Context, streamName string, data map[string]interface{}) (string, error) {
	// XADD streamName * key1 val1 key2 val2 ...
	// Using '*' as the ID tells Redis to auto-generate a timestamp-based ID.
	args := &redis.XAddArgs{
		Stream: streamName,
		Values: data,
	}

	msgID, err := c.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to XADD to stream %s: %w", streamName, err)
	}
	return msgID, nil
}

// EnsureStreamGroupExists creates the consumer group (idempotent).
// Call this on consumer startup.
func (c *Client) EnsureStreamGroupExists(ctx context.Context, streamName, groupName string) error {
	// XGROUP CREATE streamName groupName $ MKSTREAM
	// - '$' means it will only read *new* messages (not historical ones).
	// - 'MKSTREAM' creates the stream if it doesn't already exist.
	err := c.client.XGroupCreateMkStream(ctx, streamName, groupName, "$").Err()
	if err != nil {
		// "BUSYGROUP" error is fine, it means the group already exists.
		if !isBusyGroupError(err) {
			return fmt.Errorf("failed to create consumer group: %w", err)
		}
	}
	return nil
}

// ReadFromStreamGroup blocks and reads new messages from the stream.
func (c *Client) ReadFromStreamGroup(ctx context.Context, streamName, groupName, consumerName string, block time.Duration) ([]redis.XMessage, error) {
	// XREADGROUP GROUP groupName consumerName COUNT 1 BLOCK <block-ms> STREAMS streamName >
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: consumerName,
		Streams:  []string{streamName, ">"},
		Count:    1, // Read one at a time to preserve per-id ordering
		Block:    block,
	}).Result()

	if err != nil {
		// redis.Nil indicates a timeout, which is normal
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XReadGroup: %w", err)
	}

	// We are only reading from one stream, so safe to return the first element
	if len(streams) > 0 {
		return streams[0].Messages, nil
	}

	return nil, nil
}

// GetPendingMessages checks for messages delivered to a consumer but not yet acknowledged.
func (c *Client) GetPendingMessages(ctx context.Context, streamName, groupName, consumerName string) ([]redis.XPendingExt, error) {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   streamName,
		Group:    groupName,
		Start:    "-",
		End:      "+",
		Count:    10,
		Consumer: consumerName,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to check XPending: %w", err)
	}
	return pending, nil
}

// ClaimMessages allows a consumer to take over pending messages that have
// been idle for too long.
func (c *Client) ClaimMessages(ctx context.Context, streamName, groupName, consumerName string, minIdle time.Duration, msgIDs []string) ([]redis.XMessage, error) {
	claimedMsgs, err := c.client.XClaim(ctx, &redis.XClaimArgs{
		Stream:   streamName,
		Group:    groupName,
		Consumer: consumerName,
		MinIdle:  minIdle,
		Messages: msgIDs,
	}).Result()

	if err != nil {
		return nil, fmt.Errorf("failed to XClaim messages: %w", err)
	}
	return claimedMsgs, nil
}

// AckMessage acknowledges a message as successfully processed.
func (c *Client) AckMessage(ctx context.Context, streamName, groupName, msgID string) error {
	err := c.client.XAck(ctx, streamName, groupName, msgID).Err()
	if err != nil {
		return fmt.Errorf("failed to XAck message %s: %w", msgID, err)
	}
	return nil
}

// HealthCheck verifies Redis connectivity
func (c *Client) HealthCheck(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// isBusyGroupError checks if the error is a BUSYGROUP error indicating the consumer group already exists
func isBusyGroupError(err error) bool {
	if err == nil {
		return false
	}

	if redisErr, ok := err.(redis.Error); ok {
		return strings.Contains(strings.ToUpper(redisErr.Error()), "BUSYGROUP")
	}

	return strings.Contains(strings.ToUpper(err.Error()), "BUSYGROUP")
}
