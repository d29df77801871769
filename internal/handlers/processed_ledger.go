package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Fast-path replay marker; the durable gate is the Postgres unique key, so
// losing these keys only costs a round trip.
const replayMarkerTTL = 30 * 24 * time.Hour

// ProcessedLedger is the webhook's exactly-once gate: MarkApplied returns
// true only for the first delivery of a (payment id, event type) pair.
// Unmark rolls that back when the transition itself fails, so the sender's
// retry can re-apply.
type ProcessedLedger interface {
	MarkApplied(ctx context.Context, paymentID, eventType string) (bool, error)
	Unmark(ctx context.Context, paymentID, eventType string)
}

// PostgresProcessedLedger keys replays on the processed_payment_events
// primary key, with Redis short-circuiting recent ones.
type PostgresProcessedLedger struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
	logger      *zap.SugaredLogger
}

func NewPostgresProcessedLedger(db *pgxpool.Pool, redisClient *redis.Client, logger *zap.SugaredLogger) *PostgresProcessedLedger {
	return &PostgresProcessedLedger{db: db, redisClient: redisClient, logger: logger}
}

func (l *PostgresProcessedLedger) MarkApplied(ctx context.Context, paymentID, eventType string) (bool, error) {
	key := replayKey(paymentID, eventType)
	if l.redisClient != nil {
		if seen, err := l.redisClient.Exists(ctx, key).Result(); err == nil && seen > 0 {
			return false, nil
		}
	}

	tag, err := l.db.Exec(ctx, `
		INSERT INTO processed_payment_events (payment_id, event_type, applied_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (payment_id, event_type) DO NOTHING`,
		paymentID, eventType, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record processed payment event: %w", err)
	}
	first := tag.RowsAffected() == 1

	if first && l.redisClient != nil {
		l.redisClient.Set(ctx, key, 1, replayMarkerTTL)
	}
	return first, nil
}

func (l *PostgresProcessedLedger) Unmark(ctx context.Context, paymentID, eventType string) {
	if _, err := l.db.Exec(ctx, `
		DELETE FROM processed_payment_events WHERE payment_id = $1 AND event_type = $2`,
		paymentID, eventType); err != nil {
		l.logger.Errorw("processed marker rollback failed", "payment_id", paymentID, "error", err)
	}
	if l.redisClient != nil {
		l.redisClient.Del(ctx, replayKey(paymentID, eventType))
	}
}

func replayKey(paymentID, eventType string) string {
	return fmt.Sprintf("payment_event:%s:%s", paymentID, eventType)
}
