package models

// Event types the webhook state machine applies. Anything else is
// acknowledged and ignored.
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
)

// Purchase kinds carried in the payment notes.
const (
	NotesTypeSubscription = "subscription"
	NotesTypeBoost        = "boost"
)

// WebhookEvent is the raw payment processor callback body.
type WebhookEvent struct {
	EventType string  `json:"eventType"`
	Payload   Payload `json:"payload"`
}

type Payload struct {
	Payment Payment `json:"payment"`
}

type Payment struct {
	Entity Entity `json:"entity"`
}

// Entity is the payment record itself; ID is the processor's payment
// identifier and the idempotency key for replays.
type Entity struct {
	ID    string `json:"id"`
	Notes Notes  `json:"notes"`
}

// Notes is the merchant-supplied metadata attached at checkout. Type selects
// the monetization transition; the remaining fields key it.
type Notes struct {
	Type       string `json:"type"`
	UserID     string `json:"userId,omitempty"`
	PropertyID string `json:"propertyId,omitempty"`
	BoostLevel int64  `json:"boostLevel,omitempty"`
}
