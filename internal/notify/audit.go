package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeliveryLog is the durable audit trail of delivery attempts. Recording is
// best-effort; a failed write never fails the triggering event.
type DeliveryLog interface {
	Record(ctx context.Context, eventID, recipientID, notifType string, outcome Outcome) error
}

// PostgresDeliveryLog writes to the notification_log table.
type PostgresDeliveryLog struct {
	db *pgxpool.Pool
}

func NewPostgresDeliveryLog(db *pgxpool.Pool) *PostgresDeliveryLog {
	return &PostgresDeliveryLog{db: db}
}

func (l *PostgresDeliveryLog) Record(ctx context.Context, eventID, recipientID, notifType string, outcome Outcome) error {
	query := `
		INSERT INTO notification_log (id, event_id, recipient_id, notif_type, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := l.db.Exec(ctx, query,
		uuid.New().String(), eventID, recipientID, notifType, outcome.String(), time.Now().UTC())
	return err
}
