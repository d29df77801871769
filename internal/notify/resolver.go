package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"io.realgram.engine/internal/store"
)

// Recipient is a deliverable address plus display attributes. Token is empty
// when the user has no registered device; that is an expected state, not an
// error.
type Recipient struct {
	Token       string `json:"token"`
	DisplayName string `json:"displayName"`
}

const (
	recipientCacheTTL = time.Hour
	recipientCacheKey = "push_recipient:%s"
)

// Resolver maps user ids to recipients, caching lookups in Redis. The
// users/{userId} trigger invalidates the cache when a token changes, so a
// cleared token is never served stale for long.
type Resolver struct {
	store       store.Store
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewResolver(s store.Store, redisClient *redis.Client, logger *zap.SugaredLogger) *Resolver {
	return &Resolver{store: s, redisClient: redisClient, logger: logger}
}

// Resolve returns the recipient for userID. A missing user record resolves
// to fallback with no token rather than failing the notification; only an
// unreachable store is an error.
func (r *Resolver) Resolve(ctx context.Context, userID, fallback string) (Recipient, error) {
	key := fmt.Sprintf(recipientCacheKey, userID)
	if r.redisClient != nil {
		if cached, err := r.redisClient.Get(ctx, key).Result(); err == nil {
			var recipient Recipient
			if err := json.Unmarshal([]byte(cached), &recipient); err == nil {
				return withFallback(recipient, fallback), nil
			}
		}
	}

	user, err := r.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Debugw("recipient record missing", "user_id", userID)
		return Recipient{DisplayName: fallback}, nil
	}
	if err != nil {
		return Recipient{}, fmt.Errorf("resolve recipient %s: %w", userID, err)
	}

	recipient := Recipient{Token: user.FCMToken, DisplayName: user.Name}
	if r.redisClient != nil {
		if encoded, err := json.Marshal(recipient); err == nil {
			r.redisClient.Set(ctx, key, encoded, recipientCacheTTL)
		}
	}
	return withFallback(recipient, fallback), nil
}

// DisplayName resolves only the name, for composing bodies about a user who
// is not the recipient.
func (r *Resolver) DisplayName(ctx context.Context, userID, fallback string) string {
	recipient, err := r.Resolve(ctx, userID, fallback)
	if err != nil {
		r.logger.Warnw("display name lookup failed", "user_id", userID, "error", err)
		return fallback
	}
	return recipient.DisplayName
}

// Invalidate drops the cached recipient, typically after a token change.
func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	if r.redisClient == nil {
		return
	}
	if err := r.redisClient.Del(ctx, fmt.Sprintf(recipientCacheKey, userID)).Err(); err != nil {
		r.logger.Warnw("recipient cache invalidation failed", "user_id", userID, "error", err)
	}
}

func withFallback(recipient Recipient, fallback string) Recipient {
	if recipient.DisplayName == "" {
		recipient.DisplayName = fallback
	}
	return recipient
}
