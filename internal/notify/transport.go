package notify

import (
	"context"

	"firebase.google.com/go/v4/messaging"
)

// Transport is the push delivery service. Send reports a classified outcome;
// the error, when present, carries detail for logging only. Probe is a
// no-op dry delivery used by the weekly token sweep.
type Transport interface {
	Send(ctx context.Context, token string, payload Payload) (Outcome, error)
	Probe(ctx context.Context, token string) (Outcome, error)
}

// FCMTransport delivers through Firebase Cloud Messaging.
type FCMTransport struct {
	client *messaging.Client
}

func NewFCMTransport(client *messaging.Client) *FCMTransport {
	return &FCMTransport{client: client}
}

func (t *FCMTransport) Send(ctx context.Context, token string, payload Payload) (Outcome, error) {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
		Android: &messaging.AndroidConfig{
			Notification: &messaging.AndroidNotification{
				Priority: messaging.PriorityHigh,
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: payload.Title,
						Body:  payload.Body,
					},
					Sound: "default",
				},
			},
		},
	}

	_, err := t.client.Send(ctx, message)
	return classify(err), err
}

// Probe sends a dry run that is validated end to end but never delivered.
// It is classified by the same predicate as real sends, so a token is only
// reported invalid on the explicit not-registered code.
func (t *FCMTransport) Probe(ctx context.Context, token string) (Outcome, error) {
	_, err := t.client.SendDryRun(ctx, &messaging.Message{Token: token})
	return classify(err), err
}

func classify(err error) Outcome {
	switch {
	case err == nil:
		return Delivered
	case messaging.IsUnregistered(err):
		return InvalidToken
	default:
		return TransientFailure
	}
}
