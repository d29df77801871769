package triggers

import (
	"context"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// FeedConsumer pulls change envelopes off the store's Pub/Sub change feed
// and hands them to the router. Delivery is at-least-once; the send-once
// markers downstream absorb redelivered envelopes. Every message is acked,
// decodable or not, because handler failures are best-effort by contract and
// redelivery would not fix a malformed envelope.
type FeedConsumer struct {
	subscription *pubsub.Subscription
	router       *Router
	logger       *zap.SugaredLogger
}

func NewFeedConsumer(client *pubsub.Client, subscriptionID string, router *Router, logger *zap.SugaredLogger) *FeedConsumer {
	return &FeedConsumer{
		subscription: client.Subscription(subscriptionID),
		router:       router,
		logger:       logger,
	}
}

// Start blocks receiving until ctx is cancelled.
func (f *FeedConsumer) Start(ctx context.Context) error {
	f.logger.Infow("change feed consumer starting", "subscription", f.subscription.ID())
	err := f.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		defer msg.Ack()

		var ev ChangeEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			f.logger.Errorw("undecodable change envelope", "message_id", msg.ID, "error", err)
			return
		}
		if ev.EventID == "" {
			ev.EventID = msg.ID
		}
		f.router.Dispatch(ctx, ev)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("change feed receive: %w", err)
	}
	return nil
}
