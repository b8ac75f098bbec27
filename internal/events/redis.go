package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisPublisher appends events to a capped Redis stream
type RedisPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisPublisher connects to redisURL (redis://host:port/db).
// maxLen caps the stream with approximate trimming; 0 disables the cap.
func NewRedisPublisher(redisURL, stream string, maxLen int64) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisPublisher{
		client: redis.NewClient(opts),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

// Publish adds the event to the stream
func (p *RedisPublisher) Publish(ctx context.Context, e *Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: p.maxLen > 0,
		Values: map[string]any{
			"id":        e.ID,
			"type":      string(e.Type),
			"component": e.Component,
			"severity":  string(e.Severity),
			"message":   e.Message,
			"timestamp": e.Timestamp.Format(time.RFC3339Nano),
			"payload":   string(payload),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("publish event to %s: %w", p.stream, err)
	}
	return nil
}

// Ping checks the connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
