package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SendMarker records that a (event, recipient) pair has been attempted, so a
// handler retry cannot produce a duplicate push.
type SendMarker interface {
	// MarkOnce returns true exactly once per key within the TTL window.
	MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// RedisSendMarker implements SendMarker on a SET NX key.
type RedisSendMarker struct {
	client *redis.Client
}

func NewRedisSendMarker(client *redis.Client) *RedisSendMarker {
	return &RedisSendMarker{client: client}
}

func (m *RedisSendMarker) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return m.client.SetNX(ctx, key, 1, ttl).Result()
}
