package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// How long a send-once marker lives. Replays of the same change event after
// this window would send again, which matches the at-least-once contract of
// the upstream feed.
const sendMarkerTTL = 24 * time.Hour

// Dispatcher sends composed payloads at most once per (event, recipient)
// pair and classifies the outcome. It never mutates the store; callers react
// to InvalidToken by clearing the stored token themselves.
type Dispatcher struct {
	transport Transport
	marker    SendMarker
	audit     DeliveryLog
	logger    *zap.SugaredLogger
}

// NewDispatcher wires a dispatcher. audit may be nil when no durable log is
// configured.
func NewDispatcher(transport Transport, marker SendMarker, audit DeliveryLog, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{transport: transport, marker: marker, audit: audit, logger: logger}
}

// Dispatch sends payload to token on behalf of eventID/recipientID. Callers
// must short-circuit the no-token case before calling; an empty token is a
// programming error reported as Skipped rather than a transport call.
func (d *Dispatcher) Dispatch(ctx context.Context, eventID, recipientID, token string, payload Payload) Outcome {
	if token == "" {
		d.logger.Warnw("dispatch called without token", "event_id", eventID, "recipient_id", recipientID)
		return Skipped
	}

	key := fmt.Sprintf("push_sent:%s:%s", eventID, recipientID)
	first, err := d.marker.MarkOnce(ctx, key, sendMarkerTTL)
	if err != nil {
		// Marker store down: prefer a possible duplicate over a lost
		// notification.
		d.logger.Warnw("send marker unavailable", "event_id", eventID, "error", err)
	} else if !first {
		d.logger.Debugw("duplicate send suppressed", "event_id", eventID, "recipient_id", recipientID)
		return Skipped
	}

	outcome, sendErr := d.transport.Send(ctx, token, payload)
	switch outcome {
	case Delivered:
		d.logger.Infow("notification delivered",
			"event_id", eventID, "recipient_id", recipientID, "notif_type", payload.Data["type"])
	case InvalidToken:
		d.logger.Infow("notification rejected, token invalid",
			"event_id", eventID, "recipient_id", recipientID)
	case TransientFailure:
		d.logger.Warnw("notification dropped after transient failure",
			"event_id", eventID, "recipient_id", recipientID, "error", sendErr)
	}

	if d.audit != nil {
		if err := d.audit.Record(ctx, eventID, recipientID, payload.Data["type"], outcome); err != nil {
			d.logger.Warnw("notification audit write failed", "event_id", eventID, "error", err)
		}
	}
	return outcome
}
